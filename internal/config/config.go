package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// ProjectFile is the per-directory override file.
const ProjectFile = ".gaslogconfig"

// MQTT configures the optional sample publisher. An empty Broker disables it.
type MQTT struct {
	Broker   string `json:"broker,omitempty" yaml:"broker,omitempty"`
	Topic    string `json:"topic,omitempty" yaml:"topic,omitempty"`
	ClientID string `json:"client_id,omitempty" yaml:"client_id,omitempty"`
}

// Config holds all configurable gaslog settings.
type Config struct {
	SerialPort      string   `json:"serial_port,omitempty" yaml:"serial_port,omitempty"`
	BaudRate        int      `json:"baud_rate,omitempty" yaml:"baud_rate,omitempty"`
	ListenAddr      string   `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
	ServerURL       string   `json:"server_url,omitempty" yaml:"server_url,omitempty"` // appliance used by operator commands
	DataDir         string   `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
	MetricName      string   `json:"metric_name,omitempty" yaml:"metric_name,omitempty"`
	IndexPath       string   `json:"index_path,omitempty" yaml:"index_path,omitempty"` // landing page override
	PollInterval    Duration `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
	SettleDelay     Duration `json:"settle_delay,omitempty" yaml:"settle_delay,omitempty"`
	ReadTimeout     Duration `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"`
	MaxConnections  int      `json:"max_connections,omitempty" yaml:"max_connections,omitempty"`
	ShutdownTimeout Duration `json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty"`
	LogLevel        string   `json:"log_level,omitempty" yaml:"log_level,omitempty"`   // debug | info | warn | error
	LogFormat       string   `json:"log_format,omitempty" yaml:"log_format,omitempty"` // text | json
	MQTT            MQTT     `json:"mqtt,omitempty" yaml:"mqtt,omitempty"`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		SerialPort:      "/dev/ttyUSB0",
		BaudRate:        9600,
		ListenAddr:      ":8080",
		ServerURL:       "http://localhost:8080",
		DataDir:         "data",
		MetricName:      "O2 Level",
		PollInterval:    Duration(time.Second),
		SettleDelay:     Duration(100 * time.Millisecond),
		ReadTimeout:     Duration(time.Second),
		MaxConnections:  64,
		ShutdownTimeout: Duration(5 * time.Second),
		LogLevel:        "info",
		LogFormat:       "text",
		MQTT:            MQTT{Topic: "gaslog/samples"},
	}
}

// Dir returns the global config directory, ~/.config/gaslog.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "gaslog"), nil
}

// GlobalPath returns the path SaveGlobal writes to.
func GlobalPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GlobalExists reports whether any global config file is present.
func GlobalExists() bool {
	dir, err := Dir()
	if err != nil {
		return false
	}
	for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// LoadGlobal reads ~/.config/gaslog/config.json (comments allowed) or, if
// that is absent, config.yaml. Returns defaults if neither exists.
func LoadGlobal() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
		cfg, err := loadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			return cfg, nil
		}
	}
	d := Defaults()
	return &d, nil
}

// LoadProject reads .gaslogconfig in the current working directory, as JSON
// when it starts with '{' and as YAML otherwise. Returns nil (no error) if
// the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(ProjectFile)
}

// SaveGlobal writes cfg to ~/.config/gaslog/config.json, creating the
// directory if needed.
func SaveGlobal(cfg *Config) error {
	path, err := GlobalPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// loadFile reads and parses the config file at path. It returns nil when the
// file is absent.
func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var cfg Config
	if isYAML(path, data) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(jsonc.ToJSON(data), &cfg)
	}
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

func isYAML(path string, data []byte) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return true
	case ".json":
		return false
	}
	trimmed := bytes.TrimSpace(jsonc.ToJSON(data))
	return len(trimmed) > 0 && trimmed[0] != '{'
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	result.apply(global)
	result.apply(project)
	return result
}

// apply copies every non-zero field of src over c.
func (c *Config) apply(src *Config) {
	if src == nil {
		return
	}
	setString(&c.SerialPort, src.SerialPort)
	setInt(&c.BaudRate, src.BaudRate)
	setString(&c.ListenAddr, src.ListenAddr)
	setString(&c.ServerURL, src.ServerURL)
	setString(&c.DataDir, src.DataDir)
	setString(&c.MetricName, src.MetricName)
	setString(&c.IndexPath, src.IndexPath)
	setDuration(&c.PollInterval, src.PollInterval)
	setDuration(&c.SettleDelay, src.SettleDelay)
	setDuration(&c.ReadTimeout, src.ReadTimeout)
	setInt(&c.MaxConnections, src.MaxConnections)
	setDuration(&c.ShutdownTimeout, src.ShutdownTimeout)
	setString(&c.LogLevel, src.LogLevel)
	setString(&c.LogFormat, src.LogFormat)
	setString(&c.MQTT.Broker, src.MQTT.Broker)
	setString(&c.MQTT.Topic, src.MQTT.Topic)
	setString(&c.MQTT.ClientID, src.MQTT.ClientID)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *Duration, v Duration) {
	if v != 0 {
		*dst = v
	}
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Validate reports every setting that cannot be used.
func (c Config) Validate() error {
	var errs []error
	if c.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("baud_rate must be positive, got %d", c.BaudRate))
	}
	if c.MaxConnections <= 0 {
		errs = append(errs, fmt.Errorf("max_connections must be positive, got %d", c.MaxConnections))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval))
	}
	if c.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("read_timeout must be positive, got %s", c.ReadTimeout))
	}
	if strings.ContainsAny(c.MetricName, ",\"\r\n") {
		errs = append(errs, fmt.Errorf("metric_name must not contain a comma, quote or line break, got %q", c.MetricName))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}
