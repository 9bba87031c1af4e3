package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/retailkit/internal/config"
	"github.com/roach88/retailkit/internal/notify"
	"github.com/roach88/retailkit/internal/pipeline"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // optional CUE file unified with the defaults
	Seed    uint64
	SeedSet bool // true when --seed was given
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the retailkit CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "retailkit",
		Short: "retailkit - deterministic retail analytics",
		Long: `Generate a synthetic retail dataset and run analytics recipes over it:
validation and quarantine, promotion uplift, loyalty accrual, RFM
segmentation, notifications, inventory correlation and activity logs.

The same configuration and seed always produce byte-identical output.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			opts.SeedSet = cmd.Flags().Changed("seed")
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "CUE config file unified with the defaults")
	cmd.PersistentFlags().Uint64Var(&opts.Seed, "seed", 0, "override generator.seed")

	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewDigestCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// formatter returns an OutputFormatter writing to the command's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// logger builds a text logger on the command's stderr, at debug level
// with --verbose.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// loadConfig resolves the configuration from --config and --seed.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.Config != "" {
		cfg, err = config.Load(o.Config)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.SeedSet {
		cfg.Generator.Seed = o.Seed
		if err := config.Validate(cfg); err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid config", err)
		}
	}
	return cfg, nil
}

// runPipeline loads the configuration and runs the selected recipes.
func (o *RootOptions) runPipeline(cmd *cobra.Command, recipes []string, sender notify.Sender) (*pipeline.Result, error) {
	if _, err := pipeline.ParseRecipes(recipes); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid recipe selection", err)
	}
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := pipeline.Run(ctx, cfg, pipeline.Options{
		Recipes: recipes,
		Sender:  sender,
		Logger:  o.logger(cmd),
	})
	if err != nil {
		return nil, WrapExitError(ExitFailure, "run failed", err)
	}
	return res, nil
}

// reportError writes err as a JSON error response when --format json is
// set, and returns it for the exit code. Text mode leaves printing to main.
func reportError(f *OutputFormatter, err error) error {
	if f.Format != "json" {
		return err
	}
	code := ErrCodeGeneric
	var le *config.LoadError
	if errors.As(err, &le) {
		code = le.Code
	}
	if encErr := f.Error(code, err.Error(), nil); encErr != nil {
		return encErr
	}
	return err
}
