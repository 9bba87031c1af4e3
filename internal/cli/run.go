package cli

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/roach88/retailkit/internal/notify"
	"github.com/roach88/retailkit/internal/report"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Recipes []string
	Notify  string // "outbox" | "log"
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run analytics recipes and print the summary",
		Long: `Generate the dataset and run the selected recipes. Validation always runs
first; recipes another recipe depends on are computed but only selected
recipes are reported.

Recipes: quality, promotions, loyalty, segments, notifications, inventory,
activity.

Text output renders one table per view. JSON output carries the canonical
summary, whose digest the digest command prints.

Examples:
  retailkit run
  retailkit run --recipe loyalty --recipe segments
  retailkit run --notify log -v
  retailkit run --format json --seed 7`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecipes(opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Recipes, "recipe", nil, "recipe to report (repeatable, default all)")
	cmd.Flags().StringVar(&opts.Notify, "notify", "outbox", "notification sender (outbox|log)")

	return cmd
}

func runRecipes(opts *RunOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	var sender notify.Sender
	switch opts.Notify {
	case "outbox":
	case "log":
		sender = notify.LogSender{Logger: opts.logger(cmd)}
	default:
		return reportError(formatter, NewExitError(ExitCommandError,
			fmt.Sprintf("invalid notify sender %q: must be outbox or log", opts.Notify)))
	}

	res, err := opts.runPipeline(cmd, opts.Recipes, sender)
	if err != nil {
		return reportError(formatter, err)
	}

	if opts.Format == "json" {
		canonical, err := res.Summary.Canonical()
		if err != nil {
			return err
		}
		return formatter.Success(json.RawMessage(canonical))
	}
	return report.WriteText(cmd.OutOrStdout(), res.Summary.Tables())
}
