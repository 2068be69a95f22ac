package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/bluegreen/internal/cli"
	"github.com/aretw0/bluegreen/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "bluegreen",
	Short: "Bluegreen rotates deployments between two slots",
	Long: `Bluegreen keeps a rotation record for a two-slot (BLUE/GREEN) deployment.
Each deploy moves the requested version into the idle slot and keeps the
previous version running in the other one.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("config", config.DefaultPath, "Path to the configuration file")
	flags.StringSlice("env-file", nil, "Load environment variables from these .env files")
	flags.String("key", "", "Key of the rotation record (default \"blue-green-state\")")
	flags.String("backend", "", "State backend: memory, file, redis or ssm")
	flags.StringArray("store-option", nil, "Backend option as name=value (repeatable)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")
}

// loadConfig layers the config file, .env files, BLUEGREEN_* variables and flags.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	envFiles, _ := flags.GetStringSlice("env-file")

	cfg, err := config.Load(path, flags.Changed("config"), envFiles...)
	if err != nil {
		return nil, nil, err
	}

	if flags.Changed("key") {
		cfg.Key, _ = flags.GetString("key")
	}
	if flags.Changed("backend") {
		cfg.Store.Backend, _ = flags.GetString("backend")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	storeOpts, _ := flags.GetStringArray("store-option")
	for _, pair := range storeOpts {
		if err := cfg.Store.SetOption(pair); err != nil {
			return nil, nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := cli.NewLogger(os.Stderr, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
