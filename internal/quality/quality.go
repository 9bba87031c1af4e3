// Package quality implements the ingestion validation filter.
//
// Every header and line item is checked against a fixed list of
// independent predicates. A row is clean when all of them pass; otherwise
// it is quarantined together with the names of the predicates it failed,
// in predicate order. Nothing here returns an error for bad data: a
// rejected row is an output, not a failure.
package quality

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/roach88/retailkit/internal/model"
)

// Reason is the name of a failed predicate.
type Reason string

// Header predicates.
const (
	HeaderRequiredFields    Reason = "required_fields"
	HeaderStoreExists       Reason = "store_exists"
	HeaderCustomerExists    Reason = "customer_exists"
	HeaderNonNegativeAmount Reason = "non_negative_amount"
	HeaderDateInWindow      Reason = "date_in_window"
	HeaderTotalsMatch       Reason = "totals_match"
)

// Line predicates.
const (
	LineRequiredFields      Reason = "required_fields"
	LineTransactionExists   Reason = "transaction_exists"
	LineProductExists       Reason = "product_exists"
	LinePromotionExists     Reason = "promotion_exists"
	LineNonNegativeQuantity Reason = "non_negative_quantity"
	LineNonNegativeAmount   Reason = "non_negative_amount"
)

// TotalsTolerance is the largest accepted gap between a header total and
// the sum of its lines.
var TotalsTolerance = decimal.New(1, -2)

// QuarantinedHeader is a rejected header and the predicates it failed.
type QuarantinedHeader struct {
	Row     model.SalesHeader `json:"row"`
	Reasons []Reason          `json:"reasons"`
}

// QuarantinedLine is a rejected line item and the predicates it failed.
type QuarantinedLine struct {
	Row     model.SalesLineItem `json:"row"`
	Reasons []Reason            `json:"reasons"`
}

// ReasonCount is the number of rows of one table failing one predicate.
type ReasonCount struct {
	Table  string `json:"table"`
	Reason Reason `json:"reason"`
	Rows   int    `json:"rows"`
}

// Result is the clean/quarantine split of one validation pass.
type Result struct {
	CleanHeaders       []model.SalesHeader
	CleanLines         []model.SalesLineItem
	QuarantinedHeaders []QuarantinedHeader
	QuarantinedLines   []QuarantinedLine
}

type headerCheck struct {
	reason Reason
	pass   func(h model.SalesHeader) bool
}

type lineCheck struct {
	reason Reason
	pass   func(l model.SalesLineItem) bool
}

// Validate splits the dataset's headers and lines into clean and
// quarantined rows. Input order is preserved within each output slice.
func Validate(ds *model.Dataset) *Result {
	idx := ds.Index()
	lineSums := make(map[string]decimal.Decimal)
	for _, l := range ds.Lines {
		lineSums[l.TransactionID] = lineSums[l.TransactionID].Add(l.Amount)
	}
	transactions := make(map[string]bool, len(ds.Headers))
	for _, h := range ds.Headers {
		transactions[h.TransactionID] = true
	}

	headerChecks := []headerCheck{
		{HeaderRequiredFields, func(h model.SalesHeader) bool {
			return h.TransactionID != "" && h.CustomerID != "" && h.StoreID != "" && !h.Date.IsZero()
		}},
		{HeaderStoreExists, func(h model.SalesHeader) bool {
			_, ok := idx.Stores[h.StoreID]
			return ok
		}},
		{HeaderCustomerExists, func(h model.SalesHeader) bool {
			_, ok := idx.Customers[h.CustomerID]
			return ok
		}},
		{HeaderNonNegativeAmount, func(h model.SalesHeader) bool {
			return !h.TotalAmount.IsNegative()
		}},
		{HeaderDateInWindow, func(h model.SalesHeader) bool {
			return ds.Window.Contains(h.Date)
		}},
		{HeaderTotalsMatch, func(h model.SalesHeader) bool {
			sum, ok := lineSums[h.TransactionID]
			if !ok {
				return false
			}
			return h.TotalAmount.Sub(sum).Abs().LessThanOrEqual(TotalsTolerance)
		}},
	}

	lineChecks := []lineCheck{
		{LineRequiredFields, func(l model.SalesLineItem) bool {
			return l.LineItemID != "" && l.TransactionID != "" && l.ProductID != ""
		}},
		{LineTransactionExists, func(l model.SalesLineItem) bool {
			return transactions[l.TransactionID]
		}},
		{LineProductExists, func(l model.SalesLineItem) bool {
			_, ok := idx.Products[l.ProductID]
			return ok
		}},
		{LinePromotionExists, func(l model.SalesLineItem) bool {
			if l.PromotionID == "" {
				return true
			}
			_, ok := idx.Promotions[l.PromotionID]
			return ok
		}},
		{LineNonNegativeQuantity, func(l model.SalesLineItem) bool {
			return l.Quantity >= 0
		}},
		{LineNonNegativeAmount, func(l model.SalesLineItem) bool {
			return !l.Amount.IsNegative()
		}},
	}

	res := &Result{}
	for _, h := range ds.Headers {
		var failed []Reason
		for _, c := range headerChecks {
			if !c.pass(h) {
				failed = append(failed, c.reason)
			}
		}
		if len(failed) == 0 {
			res.CleanHeaders = append(res.CleanHeaders, h)
		} else {
			res.QuarantinedHeaders = append(res.QuarantinedHeaders, QuarantinedHeader{Row: h, Reasons: failed})
		}
	}
	for _, l := range ds.Lines {
		var failed []Reason
		for _, c := range lineChecks {
			if !c.pass(l) {
				failed = append(failed, c.reason)
			}
		}
		if len(failed) == 0 {
			res.CleanLines = append(res.CleanLines, l)
		} else {
			res.QuarantinedLines = append(res.QuarantinedLines, QuarantinedLine{Row: l, Reasons: failed})
		}
	}
	return res
}

// Analytics returns the tables downstream recipes consume: the clean
// headers, and the clean lines whose transaction is itself clean.
func (r *Result) Analytics() ([]model.SalesHeader, []model.SalesLineItem) {
	clean := make(map[string]bool, len(r.CleanHeaders))
	for _, h := range r.CleanHeaders {
		clean[h.TransactionID] = true
	}
	lines := make([]model.SalesLineItem, 0, len(r.CleanLines))
	for _, l := range r.CleanLines {
		if clean[l.TransactionID] {
			lines = append(lines, l)
		}
	}
	return r.CleanHeaders, lines
}

// Counts tallies failures per table and predicate, ordered by table then
// reason name. A row failing two predicates is counted under both.
func (r *Result) Counts() []ReasonCount {
	tally := make(map[[2]string]int)
	for _, q := range r.QuarantinedHeaders {
		for _, reason := range q.Reasons {
			tally[[2]string{"headers", string(reason)}]++
		}
	}
	for _, q := range r.QuarantinedLines {
		for _, reason := range q.Reasons {
			tally[[2]string{"lines", string(reason)}]++
		}
	}

	out := make([]ReasonCount, 0, len(tally))
	for k, n := range tally {
		out = append(out, ReasonCount{Table: k[0], Reason: Reason(k[1]), Rows: n})
	}
	slices.SortFunc(out, func(a, b ReasonCount) int {
		return cmp.Or(cmp.Compare(a.Table, b.Table), cmp.Compare(a.Reason, b.Reason))
	})
	return out
}
