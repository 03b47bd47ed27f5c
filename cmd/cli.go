// SPDX-License-Identifier: MIT

// Package cmd implements the command line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"audiostream/internal/config"
	"audiostream/internal/log"
	"audiostream/pkg/build"
)

// rootOptions are shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	debug      bool

	cfg *config.Config
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	buildInfo := build.GetBuildFlags()
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"Path to a YAML configuration file (default: ./config.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"Logging level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&opts.debug, "verbose", "v", false,
		"Show verbose output")

	rootCmd.AddCommand(
		newDevicesCommand(),
		newLiveCommand(opts),
		newProcessCommand(opts),
	)
	return rootCmd
}

// load reads the configuration and applies the logging flags.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Debug = o.debug
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}

	level, ok := log.ParseLevel(cfg.LogLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	if cfg.Debug {
		level = log.LevelDebug
	}
	log.SetLevel(level)

	o.cfg = cfg
	return nil
}

// Execute runs the CLI with the process arguments until ctx is done or the
// command returns.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
