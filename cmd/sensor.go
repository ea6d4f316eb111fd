package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/gaslog/internal/sensor"
	"github.com/fakeyudi/gaslog/internal/sessionlog"
)

var probePort string
var probeBaud int

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Query the sensor once and print its reply",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := GetConfig()
		if cmd.Flags().Changed("port") {
			c.SerialPort = probePort
		}
		if cmd.Flags().Changed("baud") {
			c.BaudRate = probeBaud
		}

		link, err := openLink(c.SerialPort, c.BaudRate)
		if err != nil {
			return fmt.Errorf("opening serial port: %w", err)
		}
		defer link.Close()

		value, err := sensor.Query(cmd.Context(), link, clockwork.NewRealClock(), c.SettleDelay.Std(), c.ReadTimeout.Std())
		if err != nil {
			return fmt.Errorf("querying %s: %w", c.SerialPort, err)
		}
		cmd.Println(value)
		return nil
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports on this host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := listPorts()
		if err != nil {
			return fmt.Errorf("listing serial ports: %w", err)
		}
		if len(ports) == 0 {
			cmd.Println("no serial ports found")
			return nil
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("PORT", "USB", "VID:PID", "SERIAL", "PRODUCT")
		for _, p := range ports {
			usb, id := "no", "-"
			if p.IsUSB {
				usb, id = "yes", p.VID+":"+p.PID
			}
			t.Row(p.Name, usb, id, dash(p.Serial), dash(p.Product))
		}
		cmd.Println(t.String())
		return nil
	},
}

// listPorts enumerates serial ports. Tests replace it.
var listPorts = sensor.ListPorts

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var tailCmd = &cobra.Command{
	Use:   "tail <file>",
	Short: "Print a session file and follow rows as they are recorded",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return sessionlog.Follow(ctx, args[0], cmd.OutOrStdout())
	},
}

func init() {
	probeCmd.Flags().StringVarP(&probePort, "port", "p", "", "serial port of the sensor (overrides config)")
	probeCmd.Flags().IntVar(&probeBaud, "baud", 0, "serial baud rate (overrides config)")
	rootCmd.AddCommand(probeCmd, portsCmd, tailCmd)
}
