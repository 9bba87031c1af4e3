package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/retailkit/internal/config"
	"github.com/roach88/retailkit/internal/model"
	"github.com/roach88/retailkit/internal/pipeline"
	"github.com/roach88/retailkit/internal/report"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Samples int // rows to show per master table
}

// GenerateResult is the JSON payload of the generate command.
type GenerateResult struct {
	Seed   uint64               `json:"seed,string"`
	Window pipeline.WindowInfo  `json:"window"`
	Tables []pipeline.TableSize `json:"tables"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the synthetic dataset and print table sizes",
		Long: `Generate the synthetic dataset from the configuration and print the
size of every table. No recipe output is reported.

Examples:
  retailkit generate
  retailkit generate --seed 7 --samples 3
  retailkit generate --config small.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Samples, "samples", 0, "print the first N rows of each master table")

	return cmd
}

func runGenerate(opts *GenerateOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	// Quality always runs and is the cheapest recipe to carry along.
	res, err := opts.runPipeline(cmd, []string{pipeline.RecipeQuality}, nil)
	if err != nil {
		return reportError(formatter, err)
	}
	sum := res.Summary

	if opts.Format == "json" {
		return formatter.Success(GenerateResult{
			Seed:   sum.Seed,
			Window: sum.Window,
			Tables: sum.Tables,
		})
	}

	sizes := report.Table{Name: "tables", Columns: []string{"table", "rows"}}
	for _, t := range sum.Tables {
		sizes.Append(t.Table, t.Rows)
	}
	tables := []report.Table{sizes}
	if opts.Samples > 0 {
		tables = append(tables, sampleTables(res.Dataset, opts.Samples)...)
	}

	formatter.VerboseLog("seed %d, window %s..%s", sum.Seed, sum.Window.Start, sum.Window.End)
	return report.WriteText(cmd.OutOrStdout(), tables)
}

// sampleTables renders the first n rows of the master tables and the
// sales headers.
func sampleTables(ds *model.Dataset, n int) []report.Table {
	stores := report.Table{Name: "stores", Columns: []string{"store_id", "store_name", "store_city", "store_region", "opening_date"}}
	for _, s := range ds.Stores[:min(n, len(ds.Stores))] {
		stores.Append(s.ID, s.Name, s.City, s.Region, s.OpeningDate.Format(config.DateLayout))
	}

	products := report.Table{Name: "products", Columns: []string{"product_id", "product_name", "product_category", "unit_price"}}
	for _, p := range ds.Products[:min(n, len(ds.Products))] {
		products.Append(p.ID, p.Name, p.Category, p.UnitPrice.StringFixed(2))
	}

	customers := report.Table{Name: "customers", Columns: []string{"customer_id", "first_name", "email", "loyalty_status", "total_loyalty_points"}}
	for _, c := range ds.Customers[:min(n, len(ds.Customers))] {
		customers.Append(c.ID, c.FirstName, c.Email, c.LoyaltyStatus, c.LoyaltyBalance)
	}

	headers := report.Table{Name: "sales_headers", Columns: []string{"transaction_id", "customer_id", "store_id", "transaction_date", "total_amount"}}
	for _, h := range ds.Headers[:min(n, len(ds.Headers))] {
		headers.Append(h.TransactionID, h.CustomerID, h.StoreID, h.Date.Format(config.DateLayout), h.TotalAmount.StringFixed(2))
	}

	return []report.Table{stores, products, customers, headers}
}
