package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/roach88/retailkit/internal/report"
	"github.com/roach88/retailkit/internal/warehouse"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Database string
	Customer string // optional - show this customer's balance
	Summary  bool   // print the stored summary instead of counts
	Delete   bool
}

// InspectRun is one stored run in inspect output.
type InspectRun struct {
	ID          string   `json:"id"`
	Seed        string   `json:"seed"`
	WindowStart string   `json:"window_start"`
	Days        int      `json:"days"`
	Recipes     []string `json:"recipes"`
	Digest      string   `json:"digest"`
}

// InspectCount is a row count of one warehouse table.
type InspectCount struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
}

// InspectQuarantine is a quarantine count for one table and reason.
type InspectQuarantine struct {
	Table  string `json:"table"`
	Reason string `json:"reason"`
	Rows   int    `json:"rows"`
}

// InspectBalance is a customer's balance after a run.
type InspectBalance struct {
	CustomerID string `json:"customer_id"`
	Balance    int64  `json:"balance"`
	Posted     bool   `json:"posted"`
}

// InspectResult is the JSON payload of the inspect command for one run.
type InspectResult struct {
	Run        InspectRun          `json:"run"`
	Tables     []InspectCount      `json:"tables"`
	Quarantine []InspectQuarantine `json:"quarantine"`
	Customer   *InspectBalance     `json:"customer,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect [run-id]",
		Short: "Query runs stored in a SQLite warehouse",
		Long: `Read back runs written by "retailkit export --db".

Without a run ID, lists the stored runs. With a run ID, shows the rows the
run stored per table and its quarantine breakdown by reason.

Examples:
  retailkit inspect --db retail.db
  retailkit inspect --db retail.db <run-id> --customer C00042
  retailkit inspect --db retail.db <run-id> --summary
  retailkit inspect --db retail.db <run-id> --delete`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runInspect(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite warehouse (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Customer, "customer", "", "show the balance of this customer after the run")
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "print the stored canonical summary")
	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "delete the run and all of its rows")

	return cmd
}

func runInspect(opts *InspectOptions, runID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if runID == "" && (opts.Customer != "" || opts.Summary || opts.Delete) {
		return reportError(formatter, NewExitError(ExitCommandError, "--customer, --summary and --delete need a run ID"))
	}

	// Opening a missing path would create an empty warehouse.
	if _, err := os.Stat(opts.Database); err != nil {
		return notFound(formatter, fmt.Sprintf("warehouse not found: %s", opts.Database))
	}

	st, err := warehouse.Open(opts.Database)
	if err != nil {
		return reportError(formatter, WrapExitError(ExitCommandError, "failed to open warehouse", err))
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if runID == "" {
		return listRuns(ctx, opts, st, cmd)
	}

	info, err := st.ReadRun(ctx, runID)
	if errors.Is(err, warehouse.ErrRunNotFound) {
		return notFound(formatter, fmt.Sprintf("run not found: %s", runID))
	}
	if err != nil {
		return reportError(formatter, WrapExitError(ExitFailure, "failed to read run", err))
	}

	switch {
	case opts.Delete:
		if err := st.DeleteRun(ctx, runID); err != nil {
			return reportError(formatter, WrapExitError(ExitFailure, "failed to delete run", err))
		}
		formatter.VerboseLog("deleted run %s", runID)
		if opts.Format == "json" {
			return formatter.Success(map[string]string{"deleted": runID})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ deleted run %s\n", runID)
		return nil

	case opts.Summary:
		summary, err := st.ReadSummary(ctx, runID)
		if err != nil {
			return reportError(formatter, WrapExitError(ExitFailure, "failed to read summary", err))
		}
		if opts.Format == "json" {
			return formatter.Success(json.RawMessage(summary))
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(summary))
		return nil
	}

	result, err := inspectRun(ctx, st, info, opts.Customer)
	if err != nil {
		return reportError(formatter, WrapExitError(ExitFailure, "failed to inspect run", err))
	}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return report.WriteText(cmd.OutOrStdout(), inspectTables(result))
}

func notFound(f *OutputFormatter, msg string) error {
	if f.Format == "json" {
		if encErr := f.Error(ErrCodeNotFound, msg, nil); encErr != nil {
			return encErr
		}
	}
	return NewExitError(ExitCommandError, msg)
}

func listRuns(ctx context.Context, opts *InspectOptions, st *warehouse.Store, cmd *cobra.Command) error {
	runs, err := st.Runs(ctx)
	if err != nil {
		return reportError(opts.formatter(cmd), WrapExitError(ExitFailure, "failed to list runs", err))
	}

	out := make([]InspectRun, 0, len(runs))
	for _, r := range runs {
		out = append(out, toInspectRun(r))
	}
	if opts.Format == "json" {
		return opts.formatter(cmd).Success(out)
	}
	if len(out) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs stored.")
		return nil
	}

	t := report.Table{Name: "runs", Columns: []string{"id", "seed", "window_start", "days", "recipes", "digest"}}
	for _, r := range out {
		t.Append(r.ID, r.Seed, r.WindowStart, r.Days, strings.Join(r.Recipes, ","), r.Digest)
	}
	return report.WriteText(cmd.OutOrStdout(), []report.Table{t})
}

func inspectRun(ctx context.Context, st *warehouse.Store, info warehouse.RunInfo, customerID string) (InspectResult, error) {
	result := InspectResult{Run: toInspectRun(info)}

	counts, err := st.Counts(ctx, info.ID)
	if err != nil {
		return InspectResult{}, err
	}
	result.Tables = make([]InspectCount, 0, len(counts))
	for _, c := range counts {
		result.Tables = append(result.Tables, InspectCount{Table: c.Table, Rows: c.Rows})
	}

	quarantine, err := st.QuarantineCounts(ctx, info.ID)
	if err != nil {
		return InspectResult{}, err
	}
	result.Quarantine = make([]InspectQuarantine, 0, len(quarantine))
	for _, q := range quarantine {
		result.Quarantine = append(result.Quarantine, InspectQuarantine{Table: q.Table, Reason: q.Reason, Rows: q.Rows})
	}

	if customerID != "" {
		balance, posted, err := st.CustomerBalance(ctx, info.ID, customerID)
		if err != nil {
			return InspectResult{}, err
		}
		result.Customer = &InspectBalance{CustomerID: customerID, Balance: balance, Posted: posted}
	}
	return result, nil
}

func toInspectRun(r warehouse.RunInfo) InspectRun {
	recipes := r.Recipes
	if recipes == nil {
		recipes = []string{}
	}
	return InspectRun{
		ID:          r.ID,
		Seed:        r.Seed,
		WindowStart: r.WindowStart,
		Days:        r.Days,
		Recipes:     recipes,
		Digest:      r.Digest,
	}
}

func inspectTables(r InspectResult) []report.Table {
	run := report.Table{Name: "run", Columns: []string{"field", "value"}}
	run.Append("id", r.Run.ID)
	run.Append("seed", r.Run.Seed)
	run.Append("window_start", r.Run.WindowStart)
	run.Append("days", r.Run.Days)
	run.Append("recipes", strings.Join(r.Run.Recipes, ","))
	run.Append("digest", r.Run.Digest)

	tables := report.Table{Name: "warehouse_tables", Columns: []string{"table", "rows"}}
	for _, c := range r.Tables {
		tables.Append(c.Table, c.Rows)
	}

	quarantine := report.Table{Name: "quarantine", Columns: []string{"table", "reason", "rows"}}
	for _, q := range r.Quarantine {
		quarantine.Append(q.Table, q.Reason, q.Rows)
	}

	out := []report.Table{run, tables, quarantine}
	if r.Customer != nil {
		balance := report.Table{Name: "customer", Columns: []string{"customer_id", "balance", "posted"}}
		balance.Append(r.Customer.CustomerID, r.Customer.Balance, r.Customer.Posted)
		out = append(out, balance)
	}
	return out
}
