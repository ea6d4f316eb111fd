package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/gaslog/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure gaslog (re-run anytime to edit settings)",
	// Bypass the normal PersistentPreRunE so setup works before a config exists.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(cmd, false)
	},
}

// runSetup runs the interactive setup wizard and saves the global config.
// If firstRun is true, a welcome message is shown.
func runSetup(cmd *cobra.Command, firstRun bool) error {
	out := cmd.OutOrStdout()
	if firstRun {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "  Let's get you set up.")
	}

	// Existing config values become the prompt defaults.
	var existing *config.Config
	if config.GlobalExists() {
		if c, err := config.LoadGlobal(); err == nil {
			existing = c
		}
	}

	// Port detection is best effort; the wizard still works without it.
	var names []string
	if ports, err := listPorts(); err == nil {
		for _, p := range ports {
			names = append(names, p.Name)
		}
	}

	c, err := config.RunSetup(cmd.InOrStdin(), out, existing, names)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if err := config.SaveGlobal(c); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	path, _ := config.GlobalPath()
	fmt.Fprintf(out, "  ✓ Config saved to %s.\n", path)
	fmt.Fprintln(out, "  Setup complete. Run 'gaslog serve' to start the appliance.")
	fmt.Fprintln(out)
	return nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
