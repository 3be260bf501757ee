package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhubert/relay-core/logger"
)

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Manage relay log files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the main log file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := logger.DefaultLogPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete relay log files",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := logger.ClearLogs()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d log file(s)\n", removed)
			return nil
		},
	})

	return cmd
}
