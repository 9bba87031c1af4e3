// Package promo measures how promotions moved sales.
//
// Effectiveness compares each promoted product's daily sales while carrying
// the promotion with the same product's daily sales on days when no
// promotion for its category ran. Periods, Funnel and TopProducts are the
// supporting views shown next to it on the dashboard.
package promo

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/retailkit/internal/model"
)

// MeanPlaces is the rounding applied to reported daily means and uplifts.
const MeanPlaces = 4

// Uplift compares promoted and baseline sales for one promotion, either
// for a single product or, with ProductID empty, summed over its products.
// The rollup sums only products that have baseline observations;
// NoBaselineProducts counts the promoted products left out.
//
// UnitUplift and RevenueUplift are nil when the baseline has no
// observations or a zero mean: the ratio is undefined then, not zero.
type Uplift struct {
	PromotionID          string           `json:"promotion_id"`
	ProductID            string           `json:"product_id,omitempty"`
	Category             string           `json:"category"`
	ActiveDays           int              `json:"active_days"`
	BaselineDays         int              `json:"baseline_days"`
	PromotedLines        int              `json:"promoted_lines"`
	BaselineLines        int              `json:"baseline_lines"`
	PromotedUnits        int64            `json:"promoted_units"`
	BaselineUnits        int64            `json:"baseline_units"`
	PromotedRevenue      decimal.Decimal  `json:"promoted_revenue"`
	BaselineRevenue      decimal.Decimal  `json:"baseline_revenue"`
	PromotedDailyUnits   decimal.Decimal  `json:"promoted_daily_units"`
	BaselineDailyUnits   decimal.Decimal  `json:"baseline_daily_units"`
	PromotedDailyRevenue decimal.Decimal  `json:"promoted_daily_revenue"`
	BaselineDailyRevenue decimal.Decimal  `json:"baseline_daily_revenue"`
	UnitUplift           *decimal.Decimal `json:"unit_uplift"`
	RevenueUplift        *decimal.Decimal `json:"revenue_uplift"`
	NoBaselineProducts   int              `json:"no_baseline_products,omitempty"`
}

// Effectiveness holds per-product rows and one rollup per promotion.
type Effectiveness struct {
	Products   []Uplift `json:"products"`
	Promotions []Uplift `json:"promotions"`
}

type tally struct {
	lines   int
	units   int64
	revenue decimal.Decimal
}

func (t *tally) add(l model.SalesLineItem) {
	t.lines++
	t.units += l.Quantity
	t.revenue = t.revenue.Add(l.Amount)
}

// dailyMean divides by days at full precision; zero days yields zero.
func dailyMean(total decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(days)))
}

// uplift returns (promoted - baseline) / baseline, or nil when undefined.
func uplift(promoted, baseline decimal.Decimal, observations int) *decimal.Decimal {
	if observations == 0 || baseline.IsZero() {
		return nil
	}
	u := promoted.Sub(baseline).Div(baseline).Round(MeanPlaces)
	return &u
}

// Analyze computes uplift for every promotion over analytics-ready headers
// and lines. Lines whose transaction is unknown are ignored.
func Analyze(window model.Window, promotions []model.Promotion, products []model.Product,
	headers []model.SalesHeader, lines []model.SalesLineItem) Effectiveness {

	txDate := make(map[string]time.Time, len(headers))
	for _, h := range headers {
		txDate[h.TransactionID] = model.Day(h.Date)
	}
	category := make(map[string]string, len(products))
	for _, p := range products {
		category[p.ID] = p.Category
	}

	// Baseline days per category: window days with no promotion for it.
	baselineDays := make(map[string]map[time.Time]bool)
	for _, c := range categoriesOf(products) {
		days := make(map[time.Time]bool)
		for _, d := range window.Dates() {
			if !categoryPromoted(promotions, c, d) {
				days[d] = true
			}
		}
		baselineDays[c] = days
	}

	// Baseline tallies per product.
	baseline := make(map[string]*tally)
	for _, l := range lines {
		d, ok := txDate[l.TransactionID]
		if !ok || l.PromotionID != "" {
			continue
		}
		if !baselineDays[category[l.ProductID]][d] {
			continue
		}
		t := baseline[l.ProductID]
		if t == nil {
			t = &tally{}
			baseline[l.ProductID] = t
		}
		t.add(l)
	}

	var out Effectiveness
	for _, p := range promotions {
		activeDays := 0
		for _, d := range window.Dates() {
			if p.ActiveOn(d) {
				activeDays++
			}
		}

		promoted := make(map[string]*tally)
		for _, l := range lines {
			if l.PromotionID != p.ID {
				continue
			}
			if _, ok := txDate[l.TransactionID]; !ok {
				continue
			}
			t := promoted[l.ProductID]
			if t == nil {
				t = &tally{}
				promoted[l.ProductID] = t
			}
			t.add(l)
		}

		productIDs := make([]string, 0, len(promoted))
		for id := range promoted {
			productIDs = append(productIDs, id)
		}
		slices.Sort(productIDs)

		rollup := Uplift{
			PromotionID:          p.ID,
			Category:             p.Category,
			ActiveDays:           activeDays,
			BaselineDays:         len(baselineDays[p.Category]),
			PromotedRevenue:      decimal.Zero,
			BaselineRevenue:      decimal.Zero,
			PromotedDailyUnits:   decimal.Zero,
			BaselineDailyUnits:   decimal.Zero,
			PromotedDailyRevenue: decimal.Zero,
			BaselineDailyRevenue: decimal.Zero,
		}
		for _, id := range productIDs {
			pt := promoted[id]
			bt := baseline[id]
			if bt == nil {
				bt = &tally{}
			}
			bDays := len(baselineDays[category[id]])

			row := Uplift{
				PromotionID:          p.ID,
				ProductID:            id,
				Category:             category[id],
				ActiveDays:           activeDays,
				BaselineDays:         bDays,
				PromotedLines:        pt.lines,
				BaselineLines:        bt.lines,
				PromotedUnits:        pt.units,
				BaselineUnits:        bt.units,
				PromotedRevenue:      model.Money(pt.revenue),
				BaselineRevenue:      model.Money(bt.revenue),
				PromotedDailyUnits:   dailyMean(decimal.NewFromInt(pt.units), activeDays),
				BaselineDailyUnits:   dailyMean(decimal.NewFromInt(bt.units), bDays),
				PromotedDailyRevenue: dailyMean(pt.revenue, activeDays),
				BaselineDailyRevenue: dailyMean(bt.revenue, bDays),
			}
			out.Products = append(out.Products, finish(row))

			// Promoted sales without a baseline would be measured against zero.
			if bt.lines == 0 {
				rollup.NoBaselineProducts++
				continue
			}
			rollup.PromotedLines += row.PromotedLines
			rollup.BaselineLines += row.BaselineLines
			rollup.PromotedUnits += row.PromotedUnits
			rollup.BaselineUnits += row.BaselineUnits
			rollup.PromotedRevenue = rollup.PromotedRevenue.Add(row.PromotedRevenue)
			rollup.BaselineRevenue = rollup.BaselineRevenue.Add(row.BaselineRevenue)
			rollup.PromotedDailyUnits = rollup.PromotedDailyUnits.Add(row.PromotedDailyUnits)
			rollup.BaselineDailyUnits = rollup.BaselineDailyUnits.Add(row.BaselineDailyUnits)
			rollup.PromotedDailyRevenue = rollup.PromotedDailyRevenue.Add(row.PromotedDailyRevenue)
			rollup.BaselineDailyRevenue = rollup.BaselineDailyRevenue.Add(row.BaselineDailyRevenue)
		}
		out.Promotions = append(out.Promotions, finish(rollup))
	}
	return out
}

// finish derives the uplift ratios and rounds the means for reporting.
func finish(u Uplift) Uplift {
	u.UnitUplift = uplift(u.PromotedDailyUnits, u.BaselineDailyUnits, u.BaselineLines)
	u.RevenueUplift = uplift(u.PromotedDailyRevenue, u.BaselineDailyRevenue, u.BaselineLines)
	u.PromotedDailyUnits = u.PromotedDailyUnits.Round(MeanPlaces)
	u.BaselineDailyUnits = u.BaselineDailyUnits.Round(MeanPlaces)
	u.PromotedDailyRevenue = u.PromotedDailyRevenue.Round(MeanPlaces)
	u.BaselineDailyRevenue = u.BaselineDailyRevenue.Round(MeanPlaces)
	return u
}

func categoryPromoted(promotions []model.Promotion, category string, d time.Time) bool {
	for _, p := range promotions {
		if p.Category == category && p.ActiveOn(d) {
			return true
		}
	}
	return false
}

func categoriesOf(products []model.Product) []string {
	var out []string
	for _, p := range products {
		if !slices.Contains(out, p.Category) {
			out = append(out, p.Category)
		}
	}
	return out
}
