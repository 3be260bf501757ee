package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zhubert/relay-core/config"
	"github.com/zhubert/relay-core/logger"
	"github.com/zhubert/relay-core/paths"
)

// loadConfig layers settings: defaults, then the config file, then RELAY_*
// environment variables, then command-line flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	v := viper.New()
	v.SetDefault("server", cfg.Server)
	v.SetDefault("model", cfg.Model)
	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("history_max_lines", cfg.HistoryMaxLines)
	v.SetDefault("debug", cfg.Debug)

	if path, err := paths.ConfigFilePath(); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return config.Config{}, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("RELAY")
	v.AutomaticEnv()

	flags := cmd.Root().PersistentFlags()
	if err := v.BindPFlag("server", flags.Lookup("server")); err != nil {
		return config.Config{}, err
	}
	if err := v.BindPFlag("debug", flags.Lookup("debug")); err != nil {
		return config.Config{}, err
	}

	cfg.Server = v.GetString("server")
	cfg.Model = v.GetString("model")
	cfg.Mode = v.GetString("mode")
	cfg.HistoryMaxLines = v.GetInt("history_max_lines")
	cfg.Debug = v.GetBool("debug")

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	logger.SetDebug(cfg.Debug)
	return cfg, nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage relay configuration",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := paths.ConfigFilePath()
			if err != nil {
				return err
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
				}
			}
			if err := config.Default().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "server: %s\nmodel: %s\nmode: %s\nhistory_max_lines: %d\ndebug: %t\n",
				cfg.Server, cfg.Model, cfg.Mode, cfg.HistoryMaxLines, cfg.Debug)
			return nil
		},
	}
}
