// Package activity derives an event log from clean sales and recipe
// results. The events are implicit: nothing records them as they happen,
// they are reconstructed after the fact for funnel and timeline views.
package activity

import (
	"cmp"
	"slices"
	"time"

	"github.com/roach88/retailkit/internal/loyalty"
	"github.com/roach88/retailkit/internal/model"
	"github.com/roach88/retailkit/internal/segment"
)

// Event kinds.
const (
	KindTransaction         = "transaction"
	KindPromotionPurchase   = "promotion_purchase"
	KindPointsEarned        = "points_earned"
	KindInactivityThreshold = "inactivity_threshold"
)

// Kinds lists every event kind in reporting order.
var Kinds = []string{KindTransaction, KindPromotionPurchase, KindPointsEarned, KindInactivityThreshold}

// Event is one customer event. Ref is the transaction ID when the event
// came from a sale.
type Event struct {
	Date        time.Time `json:"date"`
	CustomerID  string    `json:"customer_id"`
	Kind        string    `json:"event"`
	Ref         string    `json:"transaction_id,omitempty"`
	PromotionID string    `json:"promotion_id,omitempty"`
	Points      int64     `json:"points,omitempty"`
}

// Count is the number of events of one kind.
type Count struct {
	Kind   string `json:"event"`
	Events int    `json:"events"`
}

// Log is an ordered event list with per-kind counts.
type Log struct {
	Events []Event `json:"events"`
	Counts []Count `json:"counts"`
}

// Build assembles the log. A promotion purchase is emitted once per
// promoted line; inactivity events are dated on refDate.
func Build(headers []model.SalesHeader, lines []model.SalesLineItem, accruals []loyalty.Accrual,
	profiles []segment.Profile, refDate time.Time) Log {

	byTx := make(map[string]model.SalesHeader, len(headers))
	var events []Event
	for _, h := range headers {
		byTx[h.TransactionID] = h
		events = append(events, Event{Date: h.Date, CustomerID: h.CustomerID, Kind: KindTransaction, Ref: h.TransactionID})
	}
	for _, l := range lines {
		if l.PromotionID == "" {
			continue
		}
		h, ok := byTx[l.TransactionID]
		if !ok {
			continue
		}
		events = append(events, Event{
			Date:        h.Date,
			CustomerID:  h.CustomerID,
			Kind:        KindPromotionPurchase,
			Ref:         h.TransactionID,
			PromotionID: l.PromotionID,
		})
	}
	for _, a := range accruals {
		if a.Points <= 0 {
			continue
		}
		events = append(events, Event{Date: a.Date, CustomerID: a.CustomerID, Kind: KindPointsEarned, Ref: a.TransactionID, Points: a.Points})
	}
	for _, p := range profiles {
		if p.Segment == segment.AtRisk {
			events = append(events, Event{Date: model.Day(refDate), CustomerID: p.CustomerID, Kind: KindInactivityThreshold})
		}
	}

	slices.SortStableFunc(events, compare)

	counts := make(map[string]int, len(Kinds))
	for _, e := range events {
		counts[e.Kind]++
	}
	log := Log{Events: events}
	for _, k := range Kinds {
		log.Counts = append(log.Counts, Count{Kind: k, Events: counts[k]})
	}
	return log
}

func compare(a, b Event) int {
	return cmp.Or(
		a.Date.Compare(b.Date),
		cmp.Compare(a.CustomerID, b.CustomerID),
		cmp.Compare(slices.Index(Kinds, a.Kind), slices.Index(Kinds, b.Kind)),
		cmp.Compare(a.Ref, b.Ref),
		cmp.Compare(a.PromotionID, b.PromotionID),
	)
}

// ForCustomer returns the customer's events in log order.
func (l Log) ForCustomer(id string) []Event {
	var out []Event
	for _, e := range l.Events {
		if e.CustomerID == id {
			out = append(out, e)
		}
	}
	return out
}
