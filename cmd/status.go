package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/gaslog/internal/sessionlog"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the appliance's recording state and latest reading",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		st, err := c.Status(cmd.Context())
		if err != nil {
			return err
		}

		printState(cmd.OutOrStdout(), st)
		if st.CreatedAt != nil {
			cmd.Printf("Started: %s\n", st.CreatedAt.Format(time.RFC3339))
			cmd.Printf("Duration: %s\n", time.Since(*st.CreatedAt).Round(time.Second).String())
		}
		if st.Latest != nil {
			cmd.Printf("Latest: %s (%s)\n", st.Latest.Value, st.Latest.Timestamp.Local().Format(sessionlog.TimestampLayout))
		} else {
			cmd.Println("Latest: no reading yet")
		}
		cmd.Printf("Sessions: %d\n", len(st.Files))
		return nil
	},
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List stopped sessions, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		files, err := c.Files(cmd.Context())
		if err != nil {
			return err
		}
		if len(files) == 0 {
			cmd.Println("no sessions recorded")
			return nil
		}
		for _, f := range files {
			cmd.Println(f)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, filesCmd)
}
