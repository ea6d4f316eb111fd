package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/gaslog/internal/client"
	"github.com/fakeyudi/gaslog/internal/sessionlog"
	"github.com/fakeyudi/gaslog/internal/tui"
)

var plainOutput bool
var remoteView bool

var viewCmd = &cobra.Command{
	Use:   "view <file|session>",
	Short: "View a session file",
	Long: `View a session file in a terminal UI, or as plain text with --plain or
when stdout is not a terminal.

The argument is a path to a local file, or with --remote the name of a
session on the appliance (as listed by 'gaslog files').`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		var data []byte
		var err error
		if remoteView {
			data, err = fetchRemote(cmd, name)
		} else {
			data, err = os.ReadFile(name)
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("file not found: %s", name)
			}
		}
		if err != nil {
			return err
		}

		log, err := sessionlog.Parse(filepath.Base(name), data)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if plainOutput || !isTerminal(out) {
			sessionlog.RenderPlain(out, log)
			return nil
		}
		return tui.Run(log, name)
	},
}

func fetchRemote(cmd *cobra.Command, name string) ([]byte, error) {
	c, err := newClient()
	if err != nil {
		return nil, err
	}
	data, err := c.ViewFile(cmd.Context(), name)
	if errors.Is(err, client.ErrNotFound) {
		return nil, fmt.Errorf("session not found on appliance: %s", name)
	}
	return data, err
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

func init() {
	viewCmd.Flags().BoolVar(&plainOutput, "plain", false, "plain text output instead of TUI")
	viewCmd.Flags().BoolVar(&remoteView, "remote", false, "fetch the session from the appliance")
	rootCmd.AddCommand(viewCmd)
}
