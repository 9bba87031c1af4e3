// Package loyalty accrues points on sales transactions.
//
// Two programs are modeled. The rule-based Ledger awards
// floor(amount × rate) + bonus under the tier whose spend threshold the
// transaction reaches, and keeps running balances per customer. The Coins
// program earns a capped share of each transaction and redeems part of the
// existing balance at the same time.
//
// Posting is idempotent per transaction ID: applying the same headers twice
// leaves every balance where the first application put it.
package loyalty

import (
	"cmp"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/retailkit/internal/model"
)

// Accrual records the points one transaction earned.
type Accrual struct {
	TransactionID string          `json:"transaction_id"`
	CustomerID    string          `json:"customer_id"`
	Date          time.Time       `json:"transaction_date"`
	Amount        decimal.Decimal `json:"total_amount"`
	RuleID        int64           `json:"rule_id"`
	Points        int64           `json:"points"`
	Balance       int64           `json:"balance_after"`
}

// Change summarizes a customer whose balance moved in a ledger.
type Change struct {
	CustomerID string `json:"customer_id"`
	Opening    int64  `json:"opening_balance"`
	Earned     int64  `json:"points_earned"`
	Balance    int64  `json:"balance"`
}

// SelectRule returns the rule with the highest MinSpend not above amount.
// When no threshold is reached the lowest-threshold rule applies. Ties on
// threshold go to the lower rule ID. ok is false only when rules is empty.
func SelectRule(rules []model.LoyaltyRule, amount decimal.Decimal) (rule model.LoyaltyRule, ok bool) {
	if len(rules) == 0 {
		return model.LoyaltyRule{}, false
	}
	sorted := sortRules(rules)
	rule = sorted[0]
	for _, r := range sorted[1:] {
		if r.MinSpend.LessThanOrEqual(amount) && r.MinSpend.GreaterThan(rule.MinSpend) {
			rule = r
		}
	}
	return rule, true
}

// Points computes floor(amount × rate) + bonus. Negative amounts earn
// nothing; the bonus is paid only when the rule's threshold is reached.
func Points(rule model.LoyaltyRule, amount decimal.Decimal) int64 {
	if amount.IsNegative() {
		return 0
	}
	pts := amount.Mul(rule.PointsPerUnit).Floor().IntPart()
	if rule.MinSpend.LessThanOrEqual(amount) {
		pts += rule.BonusPoints
	}
	return pts
}

// sortRules orders rules by ascending threshold, then ID.
func sortRules(rules []model.LoyaltyRule) []model.LoyaltyRule {
	sorted := slices.Clone(rules)
	slices.SortStableFunc(sorted, func(a, b model.LoyaltyRule) int {
		if c := a.MinSpend.Cmp(b.MinSpend); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return sorted
}

// Ledger holds running point balances and the set of posted transactions.
// A Ledger is not safe for concurrent use.
type Ledger struct {
	rules    []model.LoyaltyRule
	opening  map[string]int64
	balances map[string]int64
	earned   map[string]int64
	posted   map[string]bool
	logger   *slog.Logger
}

// NewLedger opens a ledger at the customers' current balances. A nil
// logger discards output.
func NewLedger(rules []model.LoyaltyRule, customers []model.Customer, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	l := &Ledger{
		rules:    rules,
		opening:  make(map[string]int64, len(customers)),
		balances: make(map[string]int64, len(customers)),
		earned:   make(map[string]int64),
		posted:   make(map[string]bool),
		logger:   logger,
	}
	for _, c := range customers {
		l.opening[c.ID] = c.LoyaltyBalance
		l.balances[c.ID] = c.LoyaltyBalance
	}
	return l
}

// Apply posts every header not yet posted, in (date, transaction ID)
// order, and returns the accruals it made. Already-posted transactions
// are skipped.
func (l *Ledger) Apply(headers []model.SalesHeader) []Accrual {
	ordered := slices.Clone(headers)
	slices.SortStableFunc(ordered, func(a, b model.SalesHeader) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.TransactionID, b.TransactionID)
	})

	var out []Accrual
	skipped := 0
	for _, h := range ordered {
		if l.posted[h.TransactionID] {
			skipped++
			continue
		}
		l.posted[h.TransactionID] = true

		rule, ok := SelectRule(l.rules, h.TotalAmount)
		if !ok {
			continue
		}
		pts := Points(rule, h.TotalAmount)
		l.balances[h.CustomerID] += pts
		l.earned[h.CustomerID] += pts
		out = append(out, Accrual{
			TransactionID: h.TransactionID,
			CustomerID:    h.CustomerID,
			Date:          h.Date,
			Amount:        h.TotalAmount,
			RuleID:        rule.ID,
			Points:        pts,
			Balance:       l.balances[h.CustomerID],
		})
	}
	l.logger.Debug("loyalty posted", "accruals", len(out), "skipped", skipped)
	return out
}

// Balance returns a customer's current balance.
func (l *Ledger) Balance(customerID string) int64 {
	return l.balances[customerID]
}

// Earned returns the points a customer earned in this ledger.
func (l *Ledger) Earned(customerID string) int64 {
	return l.earned[customerID]
}

// Balances returns all balances keyed by customer ID. The map is a copy.
func (l *Ledger) Balances() map[string]int64 {
	out := make(map[string]int64, len(l.balances))
	for k, v := range l.balances {
		out[k] = v
	}
	return out
}

// Changed lists customers whose balance differs from the opening balance,
// ordered by customer ID.
func (l *Ledger) Changed() []Change {
	var out []Change
	for id, bal := range l.balances {
		if bal == l.opening[id] {
			continue
		}
		out = append(out, Change{
			CustomerID: id,
			Opening:    l.opening[id],
			Earned:     l.earned[id],
			Balance:    bal,
		})
	}
	slices.SortFunc(out, func(a, b Change) int { return cmp.Compare(a.CustomerID, b.CustomerID) })
	return out
}
