package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/gaslog/internal/recording"
	"github.com/fakeyudi/gaslog/internal/server"
)

// newControlCmd builds an operator command that sends one recording action
// to the appliance and reports the resulting state.
func newControlCmd(a recording.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(a),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.Control(cmd.Context(), a); err != nil {
				return fmt.Errorf("sending %s: %w", a, err)
			}
			st, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

// printState writes a one-line summary of the recording state.
func printState(w io.Writer, st *server.StatusResponse) {
	if st.Session == "" {
		fmt.Fprintf(w, "Recording: %s\n", st.State)
		return
	}
	fmt.Fprintf(w, "Recording: %s (%s)\n", st.State, st.Session)
}

func init() {
	rootCmd.AddCommand(
		newControlCmd(recording.ActionStart, "Start a new recording session"),
		newControlCmd(recording.ActionPause, "Pause the active session"),
		newControlCmd(recording.ActionResume, "Resume the paused session"),
		newControlCmd(recording.ActionStop, "Stop the current session and archive its file"),
	)
}
