package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/mediagrab/config"
	"github.com/bnema/mediagrab/internal/infrastructure/logger"
)

// commandContext loads the configuration once per invocation.
type commandContext struct {
	configFlag *string
	cfg        *config.Config
	cfgPath    string
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, path, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}
	if err := logger.Configure(cfg.LogFormat, cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	c.cfg, c.cfgPath = cfg, path
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "mediagrab",
		Short:         "Media download job server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["skip-config"] == "true" {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newTokenCommand())

	return rootCmd
}
