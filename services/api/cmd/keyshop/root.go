package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/V1nSky/key-bot/services/api/internal/config"
)

var (
	okFmt   = color.New(color.FgGreen).SprintFunc()
	warnFmt = color.New(color.FgYellow).SprintFunc()
	dimFmt  = color.New(color.Faint).SprintFunc()
)

// cli carries state shared by every subcommand.
type cli struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "keyshop",
		Short: "License key shop API",
		Long: `keyshop sells license keys through a chat bot front end.

Without a subcommand it serves the HTTP API. The storage backend is picked
from DATABASE_URL: postgres:// uses PostgreSQL, sqlite:// or file: uses a
local SQLite file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "completion" || cmd.Name() == "help" {
				return nil
			}
			return c.load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a YAML config file (default $"+config.EnvConfigFile+")")

	root.AddCommand(
		newServeCmd(c),
		newMigrateCmd(c),
		newKeysCmd(c),
		newStatsCmd(c),
	)
	return root
}

func (c *cli) load() error {
	bootstrap := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg, err := config.Load(c.configPath, bootstrap)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(c.logger)
	return nil
}
