// Package pipeline generates a dataset and runs the analytics recipes over
// it, producing a Summary.
//
// Validation always runs first: every other recipe reads only the clean,
// analytics-ready rows it hands on. Recipes are otherwise independent,
// except that notifications and the activity log read loyalty and
// segmentation results; selecting them computes those inputs too.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/retailkit/internal/activity"
	"github.com/roach88/retailkit/internal/config"
	"github.com/roach88/retailkit/internal/datagen"
	"github.com/roach88/retailkit/internal/inventory"
	"github.com/roach88/retailkit/internal/loyalty"
	"github.com/roach88/retailkit/internal/metrics"
	"github.com/roach88/retailkit/internal/model"
	"github.com/roach88/retailkit/internal/notify"
	"github.com/roach88/retailkit/internal/promo"
	"github.com/roach88/retailkit/internal/quality"
	"github.com/roach88/retailkit/internal/segment"
)

// Recipe names accepted by Options.Recipes.
const (
	RecipeQuality       = "quality"
	RecipePromotions    = "promotions"
	RecipeLoyalty       = "loyalty"
	RecipeSegments      = "segments"
	RecipeNotifications = "notifications"
	RecipeInventory     = "inventory"
	RecipeActivity      = "activity"
)

// Recipes lists every recipe in execution order.
var Recipes = []string{
	RecipeQuality, RecipePromotions, RecipeLoyalty, RecipeSegments,
	RecipeNotifications, RecipeInventory, RecipeActivity,
}

var dependsOn = map[string][]string{
	RecipeNotifications: {RecipeLoyalty, RecipeSegments},
	RecipeActivity:      {RecipeLoyalty, RecipeSegments},
}

// topProducts is how many products the promotion view ranks.
const topProducts = 5

// Options controls a run.
type Options struct {
	// Recipes selects recipes to report. Empty means all. Quality always runs.
	Recipes []string

	// Sender receives notifications. nil records them in an Outbox.
	Sender notify.Sender

	// Logger receives progress logs. nil discards.
	Logger *slog.Logger
}

// Result is everything a run produced. Summary is the reported part;
// the rest backs exports and the dashboard.
type Result struct {
	Dataset  *model.Dataset
	Quality  *quality.Result
	Accruals []loyalty.Accrual
	Coins    []loyalty.CoinEntry
	Activity activity.Log
	Summary  Summary
}

// ParseRecipes validates recipe names and returns them deduplicated in
// execution order.
func ParseRecipes(names []string) ([]string, error) {
	for _, n := range names {
		if !slices.Contains(Recipes, n) {
			return nil, fmt.Errorf("unknown recipe %q: must be one of %v", n, Recipes)
		}
	}
	var out []string
	for _, r := range Recipes {
		if slices.Contains(names, r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Run generates the dataset for cfg and executes the selected recipes.
// The context is checked between recipes.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	selected, err := ParseRecipes(opts.Recipes)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		selected = Recipes
	}
	want := func(r string) bool { return slices.Contains(selected, r) }
	need := func(r string) bool {
		if want(r) {
			return true
		}
		for _, s := range selected {
			if slices.Contains(dependsOn[s], r) {
				return true
			}
		}
		return false
	}

	ds, err := datagen.Generate(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	recordGenerated(ds)

	res := &Result{Dataset: ds}
	sum := &res.Summary
	sum.Seed = ds.Seed
	sum.Window = newWindowInfo(ds.Window)
	sum.Tables = tableSizes(ds)
	sum.Recipes = slices.Clone(selected)
	if !want(RecipeQuality) {
		sum.Recipes = append([]string{RecipeQuality}, sum.Recipes...)
	}

	step := func(name string, fn func()) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		fn()
		elapsed := time.Since(start)
		metrics.RecordRecipe(name, elapsed)
		logger.Debug("recipe finished", "recipe", name, "duration", elapsed)
		return nil
	}

	var headers []model.SalesHeader
	var lines []model.SalesLineItem
	if err := step(RecipeQuality, func() {
		res.Quality = quality.Validate(ds)
		headers, lines = res.Quality.Analytics()
		sum.Quality = newQualitySummary(res.Quality)
		metrics.SetQuarantined(len(res.Quality.QuarantinedHeaders), len(res.Quality.QuarantinedLines))
	}); err != nil {
		return nil, err
	}
	logger.Info("validation complete",
		"clean_headers", len(res.Quality.CleanHeaders),
		"quarantined_headers", len(res.Quality.QuarantinedHeaders),
		"clean_lines", len(res.Quality.CleanLines),
		"quarantined_lines", len(res.Quality.QuarantinedLines),
	)

	if want(RecipePromotions) {
		if err := step(RecipePromotions, func() {
			sum.Promotions = &PromotionSummary{
				Effectiveness: promo.Analyze(ds.Window, ds.Promotions, ds.Products, headers, lines),
				Periods:       promo.Periods(ds.Window, ds.Promotions, ds.Products, headers, lines),
				Funnel:        promo.Funnel(ds.Promotions, headers, lines),
				TopProducts:   promo.TopProducts(ds.Products, lines, topProducts),
			}
		}); err != nil {
			return nil, err
		}
	}

	var ledger *loyalty.Ledger
	if need(RecipeLoyalty) {
		if err := step(RecipeLoyalty, func() {
			ledger = loyalty.NewLedger(ds.LoyaltyRules, ds.Customers, logger)
			res.Accruals = ledger.Apply(headers)
			res.Coins = loyalty.NewCoins(cfg.Loyalty.Coins).Run(ds.Customers, headers)
		}); err != nil {
			return nil, err
		}
		if want(RecipeLoyalty) {
			sum.Loyalty = newLoyaltySummary(res.Accruals, ledger.Changed(), res.Coins)
		}
	}

	var segments segment.Result
	if need(RecipeSegments) {
		if err := step(RecipeSegments, func() {
			segments = segment.Compute(ds.Customers, headers, ds.Window.RefDate(), cfg.Segmentation)
		}); err != nil {
			return nil, err
		}
		if want(RecipeSegments) {
			sum.Segments = &segments
		}
	}

	if want(RecipeNotifications) {
		sender := opts.Sender
		if sender == nil {
			sender = &notify.Outbox{}
		}
		var (
			msgs     []notify.Message
			delivery notify.Delivery
			sendErr  error
		)
		if err := step(RecipeNotifications, func() {
			msgs = notify.Compose(ledger.Changed(), ds.Customers, segments.Lookup(), cfg.Notify, ds.Seed)
			delivery, sendErr = notify.Dispatch(ctx, sender, msgs, logger)
		}); err != nil {
			return nil, err
		}
		if sendErr != nil {
			return nil, fmt.Errorf("notifications: %w", sendErr)
		}
		metrics.RecordNotifications(delivery.Sent, delivery.Failed)
		sum.Notifications = &NotificationSummary{Delivery: delivery, Messages: msgs}
	}

	if want(RecipeInventory) {
		if err := step(RecipeInventory, func() {
			inv := inventory.Analyze(ds.Window, ds.Stores, ds.Products, headers, lines, ds.Inventory, cfg.Inventory)
			sum.Inventory = &inv
		}); err != nil {
			return nil, err
		}
	}

	if want(RecipeActivity) {
		if err := step(RecipeActivity, func() {
			res.Activity = activity.Build(headers, lines, res.Accruals, segments.Profiles, ds.Window.RefDate())
			sum.Activity = &ActivitySummary{Counts: res.Activity.Counts}
		}); err != nil {
			return nil, err
		}
	}

	logger.Info("run complete", "seed", ds.Seed, "recipes", len(sum.Recipes))
	return res, nil
}

func recordGenerated(ds *model.Dataset) {
	for _, t := range tableSizes(ds) {
		metrics.SetGenerated(t.Table, t.Rows)
	}
}
