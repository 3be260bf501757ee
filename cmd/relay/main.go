package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhubert/relay-core/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	defer logger.Close()

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "relay",
		Short:         "Chat with a coding assistant backend from the terminal",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().String("server", "", "backend base URL (overrides config)")
	root.PersistentFlags().Bool("debug", false, "enable debug logging")

	root.AddCommand(newSendCmd())
	root.AddCommand(newCommandsCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newSessionsCmd())
	root.AddCommand(newLogsCmd())
	root.AddCommand(newVersionCmd())

	return root
}
