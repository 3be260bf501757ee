package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhubert/relay-core/doctor"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that relay can reach its backend and write its state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			results := doctor.RunAll(cmd.Context(), cfg)
			fmt.Fprint(cmd.OutOrStdout(), doctor.FormatResults(results))
			return doctor.ValidateRequired(results)
		},
	}
}
