package promo

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/retailkit/internal/model"
)

// Period labels relative to a promotion's dates.
const (
	PeriodPre    = "pre"
	PeriodDuring = "during"
	PeriodPost   = "post"
)

// PeriodStats aggregates the promotion category's sales over one period.
type PeriodStats struct {
	PromotionID  string          `json:"promotion_id"`
	Period       string          `json:"period"`
	Days         int             `json:"days"`
	Units        int64           `json:"units"`
	Revenue      decimal.Decimal `json:"revenue"`
	DailyUnits   decimal.Decimal `json:"daily_units"`
	DailyRevenue decimal.Decimal `json:"daily_revenue"`
}

// Periods splits each promotion's category sales into pre, during and post
// windows. All three rows are always present; a period with no window
// days reports zero means.
func Periods(window model.Window, promotions []model.Promotion, products []model.Product,
	headers []model.SalesHeader, lines []model.SalesLineItem) []PeriodStats {

	txDate := make(map[string]time.Time, len(headers))
	for _, h := range headers {
		txDate[h.TransactionID] = model.Day(h.Date)
	}
	category := make(map[string]string, len(products))
	for _, p := range products {
		category[p.ID] = p.Category
	}

	var out []PeriodStats
	for _, p := range promotions {
		label := func(d time.Time) string {
			switch {
			case d.Before(model.Day(p.Start)):
				return PeriodPre
			case d.After(model.Day(p.End)):
				return PeriodPost
			default:
				return PeriodDuring
			}
		}

		stats := map[string]*PeriodStats{}
		order := []string{PeriodPre, PeriodDuring, PeriodPost}
		for _, name := range order {
			stats[name] = &PeriodStats{PromotionID: p.ID, Period: name, Revenue: decimal.Zero}
		}
		for _, d := range window.Dates() {
			stats[label(d)].Days++
		}
		for _, l := range lines {
			d, ok := txDate[l.TransactionID]
			if !ok || category[l.ProductID] != p.Category {
				continue
			}
			s := stats[label(d)]
			s.Units += l.Quantity
			s.Revenue = s.Revenue.Add(l.Amount)
		}
		for _, name := range order {
			s := stats[name]
			s.Revenue = model.Money(s.Revenue)
			s.DailyUnits = dailyMean(decimal.NewFromInt(s.Units), s.Days).Round(MeanPlaces)
			s.DailyRevenue = dailyMean(s.Revenue, s.Days).Round(MeanPlaces)
			out = append(out, *s)
		}
	}
	return out
}
