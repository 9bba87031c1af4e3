package pipeline

import (
	"slices"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/roach88/retailkit/internal/report"
)

// undefined is how text and spreadsheet tables show a nil ratio.
const undefined = "n/a"

func optional(d *decimal.Decimal) string {
	if d == nil {
		return undefined
	}
	return d.String()
}

func optionalInt(n *int) string {
	if n == nil {
		return undefined
	}
	return strconv.Itoa(*n)
}

// Tables renders the summary as report tables, one group per recipe
// present.
func (s Summary) Tables() []report.Table {
	overview := report.Table{Name: "overview", Columns: []string{"field", "value"}}
	overview.Append("seed", s.Seed)
	overview.Append("window_start", s.Window.Start)
	overview.Append("window_end", s.Window.End)
	overview.Append("days", s.Window.Days)
	for _, t := range s.Tables {
		overview.Append(t.Table, t.Rows)
	}
	tables := []report.Table{overview}

	if q := s.Quality; q != nil {
		t := report.Table{Name: "quality", Columns: []string{"table", "reason", "rows"}}
		t.Append("headers", "clean", q.CleanHeaders)
		t.Append("headers", "quarantined", q.QuarantinedHeaders)
		t.Append("lines", "clean", q.CleanLines)
		t.Append("lines", "quarantined", q.QuarantinedLines)
		for _, r := range q.Reasons {
			t.Append(r.Table, r.Reason, r.Rows)
		}
		tables = append(tables, t)
	}

	if p := s.Promotions; p != nil {
		eff := report.Table{Name: "promotions", Columns: []string{
			"promotion", "product", "category", "active_days", "baseline_days",
			"promoted_daily_units", "baseline_daily_units", "unit_uplift", "revenue_uplift",
		}}
		for _, u := range slices.Concat(p.Effectiveness.Promotions, p.Effectiveness.Products) {
			product := u.ProductID
			if product == "" {
				product = "(all)"
			}
			eff.Append(u.PromotionID, product, u.Category, u.ActiveDays, u.BaselineDays,
				u.PromotedDailyUnits, u.BaselineDailyUnits, optional(u.UnitUplift), optional(u.RevenueUplift))
		}

		periods := report.Table{Name: "promotion_periods", Columns: []string{"promotion", "period", "days", "units", "revenue", "daily_units", "daily_revenue"}}
		for _, ps := range p.Periods {
			periods.Append(ps.PromotionID, ps.Period, ps.Days, ps.Units, ps.Revenue, ps.DailyUnits, ps.DailyRevenue)
		}

		funnel := report.Table{Name: "promotion_funnel", Columns: []string{"promotion", "eligible", "reacted", "purchased", "pct_reacted", "pct_purchased"}}
		for _, f := range p.Funnel {
			funnel.Append(f.PromotionID, f.Eligible, f.Reacted, f.Purchased, f.PctReacted, f.PctPurchased)
		}

		top := report.Table{Name: "top_products", Columns: []string{"product", "name", "revenue", "units"}}
		for _, tp := range p.TopProducts {
			top.Append(tp.ProductID, tp.Name, tp.Revenue, tp.Units)
		}
		tables = append(tables, eff, periods, funnel, top)
	}

	if l := s.Loyalty; l != nil {
		t := report.Table{Name: "loyalty", Columns: []string{"rule", "transactions", "points"}}
		for _, u := range l.ByRule {
			t.Append(u.RuleID, u.Transactions, u.Points)
		}
		t.Append("total", l.Transactions, l.PointsAwarded)

		coins := report.Table{Name: "coins", Columns: []string{"transactions", "coins_earned", "coins_redeemed"}}
		coins.Append(l.Coins.Transactions, l.Coins.Earned, l.Coins.Redeemed)
		tables = append(tables, t, coins)
	}

	if seg := s.Segments; seg != nil {
		t := report.Table{Name: "segments", Columns: []string{"segment", "customers"}}
		for _, c := range seg.Counts {
			t.Append(c.Segment, c.Customers)
		}
		profiles := report.Table{Name: "rfm", Columns: []string{"customer", "recency", "frequency", "monetary", "r", "f", "m", "decile", "segment", "reactivation"}}
		for _, p := range seg.Profiles {
			profiles.Append(p.CustomerID, optionalInt(p.RecencyDays), p.Frequency, p.Monetary,
				p.RScore, p.FScore, p.MScore, p.MonetaryDecile, p.Segment, p.Reactivation)
		}
		tables = append(tables, t, profiles)
	}

	if n := s.Notifications; n != nil {
		t := report.Table{Name: "notifications", Columns: []string{"customer", "template", "points", "total", "message"}}
		for _, m := range n.Messages {
			t.Append(m.CustomerID, m.Template, m.PointsEarned, m.TotalPoints, m.Text())
		}
		tables = append(tables, t)
	}

	if inv := s.Inventory; inv != nil {
		t := report.Table{Name: "inventory", Columns: []string{
			"store", "region", "product", "units", "avg_daily", "stock_out_days",
			"lost_units", "lost_revenue", "stock", "days_of_cover", "risk",
		}}
		for _, r := range inv.Rows {
			t.Append(r.StoreID, r.Region, r.ProductID, r.UnitsSold, r.AvgDailySales, r.StockOutDays,
				r.LostUnits, r.LostRevenue, r.CurrentStock, optional(r.DaysOfCover), r.Risk)
		}
		regions := report.Table{Name: "inventory_regions", Columns: []string{"region", "pairs", "units", "stock_out_days", "lost_units", "lost_revenue", "critical"}}
		for _, r := range inv.Regions {
			regions.Append(r.Region, r.Pairs, r.UnitsSold, r.StockOutDays, r.LostUnits, r.LostRevenue, r.Critical)
		}
		tables = append(tables, t, regions)
	}

	if a := s.Activity; a != nil {
		t := report.Table{Name: "activity", Columns: []string{"event", "count"}}
		for _, c := range a.Counts {
			t.Append(c.Kind, c.Events)
		}
		tables = append(tables, t)
	}
	return tables
}
