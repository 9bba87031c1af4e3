// Package segment scores customers on recency, frequency and monetary
// value and assigns each one exactly one named segment.
package segment

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/retailkit/internal/config"
	"github.com/roach88/retailkit/internal/model"
)

// Segment names in precedence order.
const (
	AtRisk       = "at-risk"
	HighSpender  = "high-spender"
	Core         = "core"
	Unclassified = "unclassified"
)

// Names lists every segment in precedence order.
var Names = []string{AtRisk, HighSpender, Core, Unclassified}

// Reactivation potential labels.
const (
	ReactivationHigh = "high"
	ReactivationLow  = "low"
)

// Profile is one customer's RFM metrics and assignment.
//
// Scores are zero for customers without window purchases; only buyers are
// ranked. RecencyDays is nil when the customer has never purchased.
type Profile struct {
	CustomerID     string          `json:"customer_id"`
	RecencyDays    *int            `json:"recency_days"`
	Frequency      int             `json:"frequency"`
	Monetary       decimal.Decimal `json:"monetary"`
	RScore         int             `json:"r_score"`
	FScore         int             `json:"f_score"`
	MScore         int             `json:"m_score"`
	MonetaryDecile int             `json:"monetary_decile"`
	Balance        int64           `json:"total_loyalty_points"`
	Segment        string          `json:"segment"`
	Reactivation   string          `json:"reactivation_potential"`
}

// Count is the number of customers in one segment.
type Count struct {
	Segment   string `json:"segment"`
	Customers int    `json:"customers"`
}

// Result holds profiles ordered by customer ID and per-segment counts.
type Result struct {
	Profiles []Profile `json:"profiles"`
	Counts   []Count   `json:"counts"`
}

// Lookup returns the segment of each customer by ID.
func (r Result) Lookup() map[string]string {
	out := make(map[string]string, len(r.Profiles))
	for _, p := range r.Profiles {
		out[p.CustomerID] = p.Segment
	}
	return out
}

// Compute builds profiles for every customer. refDate is the reporting
// date recency is measured against; headers should be analytics-ready.
func Compute(customers []model.Customer, headers []model.SalesHeader, refDate time.Time, opts config.Segmentation) Result {
	type agg struct {
		txs      map[string]bool
		monetary decimal.Decimal
		last     time.Time
	}
	byCustomer := make(map[string]*agg, len(customers))
	for _, h := range headers {
		a := byCustomer[h.CustomerID]
		if a == nil {
			a = &agg{txs: make(map[string]bool), monetary: decimal.Zero}
			byCustomer[h.CustomerID] = a
		}
		a.txs[h.TransactionID] = true
		a.monetary = a.monetary.Add(h.TotalAmount)
		if d := model.Day(h.Date); d.After(a.last) {
			a.last = d
		}
	}

	profiles := make([]Profile, 0, len(customers))
	for _, c := range customers {
		p := Profile{CustomerID: c.ID, Monetary: decimal.Zero, Balance: c.LoyaltyBalance}
		var last *time.Time
		if c.LastPurchase != nil {
			d := model.Day(*c.LastPurchase)
			last = &d
		}
		if a := byCustomer[c.ID]; a != nil {
			p.Frequency = len(a.txs)
			p.Monetary = model.Money(a.monetary)
			if last == nil || a.last.After(*last) {
				last = &a.last
			}
		}
		if last != nil {
			days := model.DaysBetween(*last, refDate)
			p.RecencyDays = &days
		}
		profiles = append(profiles, p)
	}
	slices.SortFunc(profiles, func(a, b Profile) int { return cmp.Compare(a.CustomerID, b.CustomerID) })

	score(profiles)
	for i := range profiles {
		assign(&profiles[i], opts)
	}

	counts := make(map[string]int, len(Names))
	for _, p := range profiles {
		counts[p.Segment]++
	}
	res := Result{Profiles: profiles}
	for _, name := range Names {
		res.Counts = append(res.Counts, Count{Segment: name, Customers: counts[name]})
	}
	return res
}

// assign applies segment precedence: at-risk, high-spender, core,
// unclassified.
func assign(p *Profile, opts config.Segmentation) {
	switch {
	case p.Frequency == 0 && p.RecencyDays != nil && *p.RecencyDays > opts.AtRiskDays && p.Balance > 0:
		p.Segment = AtRisk
	case p.Frequency > 0 && p.MonetaryDecile >= opts.HighSpenderDecile:
		p.Segment = HighSpender
	case p.Frequency > 0:
		p.Segment = Core
	default:
		p.Segment = Unclassified
	}
	p.Reactivation = ReactivationLow
	if p.Segment == AtRisk {
		p.Reactivation = ReactivationHigh
	}
}
