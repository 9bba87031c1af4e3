package pipeline

import (
	"cmp"
	"slices"

	"github.com/roach88/retailkit/internal/activity"
	"github.com/roach88/retailkit/internal/config"
	"github.com/roach88/retailkit/internal/inventory"
	"github.com/roach88/retailkit/internal/loyalty"
	"github.com/roach88/retailkit/internal/model"
	"github.com/roach88/retailkit/internal/notify"
	"github.com/roach88/retailkit/internal/promo"
	"github.com/roach88/retailkit/internal/quality"
	"github.com/roach88/retailkit/internal/report"
	"github.com/roach88/retailkit/internal/segment"
)

// Summary is the reported outcome of a run. Its canonical JSON is
// byte-identical for identical configurations. Recipes that were not
// selected are omitted.
type Summary struct {
	Seed          uint64               `json:"seed,string"`
	Window        WindowInfo           `json:"window"`
	Tables        []TableSize          `json:"tables"`
	Recipes       []string             `json:"recipes"`
	Quality       *QualitySummary      `json:"quality"`
	Promotions    *PromotionSummary    `json:"promotions,omitempty"`
	Loyalty       *LoyaltySummary      `json:"loyalty,omitempty"`
	Segments      *segment.Result      `json:"segments,omitempty"`
	Notifications *NotificationSummary `json:"notifications,omitempty"`
	Inventory     *inventory.Result    `json:"inventory,omitempty"`
	Activity      *ActivitySummary     `json:"activity,omitempty"`
}

// WindowInfo describes the observation window with calendar dates.
type WindowInfo struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

func newWindowInfo(w model.Window) WindowInfo {
	return WindowInfo{
		Start: w.Start.Format(config.DateLayout),
		End:   w.RefDate().Format(config.DateLayout),
		Days:  w.Days,
	}
}

// TableSize is the row count of one generated table.
type TableSize struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
}

func tableSizes(ds *model.Dataset) []TableSize {
	return []TableSize{
		{"stores", len(ds.Stores)},
		{"products", len(ds.Products)},
		{"customers", len(ds.Customers)},
		{"promotions", len(ds.Promotions)},
		{"loyalty_rules", len(ds.LoyaltyRules)},
		{"sales_headers", len(ds.Headers)},
		{"sales_line_items", len(ds.Lines)},
		{"inventory_snapshots", len(ds.Inventory)},
	}
}

// QualitySummary reports partition sizes and failures per reason.
type QualitySummary struct {
	CleanHeaders       int                   `json:"clean_headers"`
	QuarantinedHeaders int                   `json:"quarantined_headers"`
	CleanLines         int                   `json:"clean_lines"`
	QuarantinedLines   int                   `json:"quarantined_lines"`
	AnalyticsHeaders   int                   `json:"analytics_headers"`
	AnalyticsLines     int                   `json:"analytics_lines"`
	Reasons            []quality.ReasonCount `json:"reasons"`
}

func newQualitySummary(r *quality.Result) *QualitySummary {
	h, l := r.Analytics()
	return &QualitySummary{
		CleanHeaders:       len(r.CleanHeaders),
		QuarantinedHeaders: len(r.QuarantinedHeaders),
		CleanLines:         len(r.CleanLines),
		QuarantinedLines:   len(r.QuarantinedLines),
		AnalyticsHeaders:   len(h),
		AnalyticsLines:     len(l),
		Reasons:            r.Counts(),
	}
}

// PromotionSummary groups the promotion views.
type PromotionSummary struct {
	Effectiveness promo.Effectiveness `json:"effectiveness"`
	Periods       []promo.PeriodStats `json:"periods"`
	Funnel        []promo.FunnelStage `json:"funnel"`
	TopProducts   []promo.TopProduct  `json:"top_products"`
}

// LoyaltySummary reports the rule ledger and the coins program.
type LoyaltySummary struct {
	Transactions     int              `json:"transactions"`
	PointsAwarded    int64            `json:"points_awarded"`
	CustomersChanged int              `json:"customers_changed"`
	ByRule           []RuleUsage      `json:"by_rule"`
	Changes          []loyalty.Change `json:"changes"`
	Coins            CoinsSummary     `json:"coins"`
}

// RuleUsage counts transactions and points per loyalty rule.
type RuleUsage struct {
	RuleID       int64 `json:"rule_id"`
	Transactions int   `json:"transactions"`
	Points       int64 `json:"points"`
}

// CoinsSummary totals the coins program.
type CoinsSummary struct {
	Transactions int   `json:"transactions"`
	Earned       int64 `json:"coins_earned"`
	Redeemed     int64 `json:"coins_redeemed"`
}

func newLoyaltySummary(accruals []loyalty.Accrual, changes []loyalty.Change, coins []loyalty.CoinEntry) *LoyaltySummary {
	s := &LoyaltySummary{
		Transactions:     len(accruals),
		CustomersChanged: len(changes),
		Changes:          changes,
	}
	byRule := make(map[int64]*RuleUsage)
	for _, a := range accruals {
		s.PointsAwarded += a.Points
		u := byRule[a.RuleID]
		if u == nil {
			u = &RuleUsage{RuleID: a.RuleID}
			byRule[a.RuleID] = u
		}
		u.Transactions++
		u.Points += a.Points
	}
	for _, u := range byRule {
		s.ByRule = append(s.ByRule, *u)
	}
	slices.SortFunc(s.ByRule, func(a, b RuleUsage) int { return cmp.Compare(a.RuleID, b.RuleID) })

	s.Coins.Transactions = len(coins)
	for _, c := range coins {
		s.Coins.Earned += c.Earned
		s.Coins.Redeemed += c.Redeemed
	}
	return s
}

// NotificationSummary reports composed messages and delivery counts.
type NotificationSummary struct {
	Delivery notify.Delivery  `json:"delivery"`
	Messages []notify.Message `json:"messages"`
}

// ActivitySummary counts derived events by kind.
type ActivitySummary struct {
	Counts []activity.Count `json:"counts"`
}

// Canonical renders the summary as canonical JSON.
func (s Summary) Canonical() ([]byte, error) {
	return report.Canonical(s)
}

// Digest hashes the canonical summary.
func (s Summary) Digest() (string, error) {
	return report.DigestOf(s)
}
