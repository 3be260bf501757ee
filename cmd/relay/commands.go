package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zhubert/relay-core/chat"
)

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List slash commands advertised by the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			client := chat.NewClient(cfg.Server)
			commands, err := client.ListCommands(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, c := range commands {
				state := ""
				if !c.Enabled {
					state = "(disabled)"
				}
				fmt.Fprintf(w, "/%s\t%s\t%s\n", c.Name, c.Description, state)
			}
			return w.Flush()
		},
	}
}
