package cli

import (
	"github.com/spf13/cobra"
)

// DigestOptions holds flags for the digest command.
type DigestOptions struct {
	*RootOptions
	Recipes []string
}

// DigestResult is the JSON payload of the digest command.
type DigestResult struct {
	Digest  string   `json:"digest"`
	Recipes []string `json:"recipes"`
}

// NewDigestCommand creates the digest command.
func NewDigestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DigestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Print the SHA-256 digest of the canonical summary",
		Long: `Run the selected recipes and print the digest of the canonical summary.
Two runs with the same configuration, seed and recipes print the same
digest.

Examples:
  retailkit digest
  retailkit digest --seed 7 --recipe inventory`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigest(opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Recipes, "recipe", nil, "recipe to include (repeatable, default all)")

	return cmd
}

func runDigest(opts *DigestOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	res, err := opts.runPipeline(cmd, opts.Recipes, nil)
	if err != nil {
		return reportError(formatter, err)
	}
	digest, err := res.Summary.Digest()
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return formatter.Success(DigestResult{Digest: digest, Recipes: res.Summary.Recipes})
	}
	return formatter.Success(digest)
}
