package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"conductor/configs"
	"conductor/internal/db"
	"conductor/internal/logging"
)

// commandContext loads configuration and the database lazily so commands
// that need neither (rubric check) run without a MONGO_URI.
type commandContext struct {
	cfg    *configs.Config
	logger *slog.Logger
}

func (c *commandContext) config() (configs.Config, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}
	cfg, err := configs.LoadConfig()
	if err != nil {
		return configs.Config{}, err
	}
	c.cfg = &cfg
	return cfg, nil
}

func (c *commandContext) log() (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	c.logger = logger
	return logger, nil
}

func (c *commandContext) store(ctx context.Context) (*db.Store, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	if _, err := c.log(); err != nil {
		return nil, err
	}
	store, err := db.Connect(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return store, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "conductor",
		Short:         "Conductor OER platform server and admin tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newIndexesCommand(ctx))
	rootCmd.AddCommand(newStatsCommand(ctx))
	rootCmd.AddCommand(newRubricCommand())
	rootCmd.AddCommand(newTokenCommand(ctx))
	return rootCmd
}
