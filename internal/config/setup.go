package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RunSetup runs the interactive setup wizard over in/out and returns the
// resulting config. If existing is non-nil, its values are the prompt
// defaults (edit mode). ports lists detected serial ports; the first one is
// offered when no port is configured yet.
func RunSetup(in io.Reader, out io.Writer, existing *Config, ports []string) (*Config, error) {
	r := bufio.NewReader(in)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	askInt := func(prompt string, defaultVal int) (int, error) {
		for {
			ans, err := ask(prompt, strconv.Itoa(defaultVal))
			if err != nil {
				return 0, err
			}
			n, err := strconv.Atoi(ans)
			if err == nil && n > 0 {
				return n, nil
			}
			fmt.Fprintf(out, "  %q is not a positive number\n", ans)
		}
	}

	cfg := Defaults()
	if existing != nil {
		cfg = *existing
	}
	if existing == nil && len(ports) > 0 {
		cfg.SerialPort = ports[0]
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  ┌─────────────────────────────────┐")
	fmt.Fprintln(out, "  │      gaslog · sensor setup      │")
	fmt.Fprintln(out, "  └─────────────────────────────────┘")
	fmt.Fprintln(out)

	if len(ports) > 0 {
		fmt.Fprintln(out, "  Detected serial ports:")
		for _, p := range ports {
			fmt.Fprintf(out, "    %s\n", p)
		}
		fmt.Fprintln(out)
	}

	var err error
	if cfg.SerialPort, err = ask("  Serial port", cfg.SerialPort); err != nil {
		return nil, err
	}
	if cfg.BaudRate, err = askInt("  Baud rate", cfg.BaudRate); err != nil {
		return nil, err
	}
	if cfg.ListenAddr, err = ask("  Listen address", cfg.ListenAddr); err != nil {
		return nil, err
	}
	if cfg.ServerURL, err = ask("  Appliance URL for operator commands", cfg.ServerURL); err != nil {
		return nil, err
	}
	if cfg.DataDir, err = ask("  Session data directory", cfg.DataDir); err != nil {
		return nil, err
	}
	if cfg.MetricName, err = ask("  Reading column name", cfg.MetricName); err != nil {
		return nil, err
	}

	broker, err := ask("  MQTT broker (blank to disable)", cfg.MQTT.Broker)
	if err != nil {
		return nil, err
	}
	cfg.MQTT.Broker = broker
	if broker != "" {
		if cfg.MQTT.Topic, err = ask("  MQTT topic", cfg.MQTT.Topic); err != nil {
			return nil, err
		}
	}

	fmt.Fprintln(out)
	return &cfg, nil
}
