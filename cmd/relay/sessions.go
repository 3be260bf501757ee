package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhubert/relay-core/session"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage locally persisted session transcripts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a persisted transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			messages, err := session.LoadHistory(args[0])
			if err != nil {
				return err
			}
			for _, msg := range messages {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", msg.Role, msg.Content)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all persisted transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := session.ClearAllHistory()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d transcript(s)\n", deleted)
			return nil
		},
	})

	return cmd
}
