package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/retailkit/internal/pipeline"
	"github.com/roach88/retailkit/internal/report"
	"github.com/roach88/retailkit/internal/warehouse"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Recipes []string
	XLSX    string // spreadsheet path
	DB      string // SQLite warehouse path
}

// ExportResult is the JSON payload of the export command.
type ExportResult struct {
	Digest string `json:"digest"`
	XLSX   string `json:"xlsx,omitempty"`
	DB     string `json:"db,omitempty"`
	RunID  string `json:"run_id,omitempty"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the run as a spreadsheet and/or SQLite snapshot",
		Long: `Run the selected recipes and export the result.

--xlsx writes one sheet per summary view.
--db loads the generated tables, quarantine and recipe outputs into a
SQLite warehouse, keyed by a run ID derived from the summary digest.
Exporting the same run twice leaves a single copy.

Examples:
  retailkit export --xlsx report.xlsx
  retailkit export --db retail.db --recipe loyalty
  retailkit export --xlsx report.xlsx --db retail.db --seed 7`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Recipes, "recipe", nil, "recipe to include (repeatable, default all)")
	cmd.Flags().StringVar(&opts.XLSX, "xlsx", "", "write the report as an xlsx workbook")
	cmd.Flags().StringVar(&opts.DB, "db", "", "load the run into a SQLite warehouse")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if opts.XLSX == "" && opts.DB == "" {
		return reportError(formatter, NewExitError(ExitCommandError, "nothing to export: set --xlsx and/or --db"))
	}

	res, err := opts.runPipeline(cmd, opts.Recipes, nil)
	if err != nil {
		return reportError(formatter, err)
	}
	digest, err := res.Summary.Digest()
	if err != nil {
		return err
	}
	out := ExportResult{Digest: digest}

	if opts.XLSX != "" {
		if err := writeXLSX(opts.XLSX, res.Summary.Tables()); err != nil {
			return reportExportError(formatter, "failed to write xlsx", err)
		}
		out.XLSX = opts.XLSX
		formatter.VerboseLog("wrote %s", opts.XLSX)
	}

	if opts.DB != "" {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		runID, err := writeWarehouse(ctx, opts.DB, res)
		if err != nil {
			return reportExportError(formatter, "failed to write warehouse", err)
		}
		out.DB = opts.DB
		out.RunID = runID
		formatter.VerboseLog("loaded run %s into %s", runID, opts.DB)
	}

	if opts.Format == "json" {
		return formatter.Success(out)
	}
	w := cmd.OutOrStdout()
	if out.XLSX != "" {
		fmt.Fprintf(w, "✓ xlsx: %s\n", out.XLSX)
	}
	if out.DB != "" {
		fmt.Fprintf(w, "✓ warehouse: %s (run %s)\n", out.DB, out.RunID)
	}
	fmt.Fprintf(w, "digest: %s\n", out.Digest)
	return nil
}

func reportExportError(f *OutputFormatter, message string, err error) error {
	if f.Format == "json" {
		if encErr := f.Error(ErrCodeWriteFailed, fmt.Sprintf("%s: %v", message, err), nil); encErr != nil {
			return encErr
		}
	}
	return WrapExitError(ExitCommandError, message, err)
}

func writeXLSX(path string, tables []report.Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return report.WriteXLSX(f, tables)
}

func writeWarehouse(ctx context.Context, path string, res *pipeline.Result) (string, error) {
	st, err := warehouse.Open(path)
	if err != nil {
		return "", err
	}
	defer st.Close()
	return st.WriteRun(ctx, res)
}
