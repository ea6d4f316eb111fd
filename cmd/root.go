package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/gaslog/internal/client"
	"github.com/fakeyudi/gaslog/internal/config"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

var serverURL string

var rootCmd = &cobra.Command{
	Use:          "gaslog",
	Short:        "Poll a serial gas sensor and record sessions over HTTP",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "setup" {
			return nil
		}

		// First run: no config anywhere, offer the wizard. Only when stdin
		// is an interactive terminal.
		if !config.GlobalExists() && term.IsTerminal(os.Stdin.Fd()) {
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "  Welcome to gaslog! Looks like this is your first time.")
			if err := runSetup(cmd, true); err != nil {
				return err
			}
		}

		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject()
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		cfg = config.Merge(global, project)

		if cmd.Flags().Changed("server") {
			cfg.ServerURL = serverURL
		}
		return nil
	},
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}

// newClient returns a client for the configured appliance.
func newClient() (*client.Client, error) {
	return client.New(cfg.ServerURL, nil)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "appliance URL for operator commands (overrides config)")
}
