package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dataset is one run's worth of generated tables.
type Dataset struct {
	Seed         uint64
	Window       Window
	Stores       []Store
	Products     []Product
	Customers    []Customer
	Promotions   []Promotion
	LoyaltyRules []LoyaltyRule
	Headers      []SalesHeader
	Lines        []SalesLineItem
	Inventory    []InventorySnapshot
}

// Index holds lookup maps over a Dataset's reference tables.
type Index struct {
	Stores     map[string]Store
	Products   map[string]Product
	Customers  map[string]Customer
	Promotions map[string]Promotion
}

// Index builds lookup maps for joins. The maps are rebuilt on every call.
func (d *Dataset) Index() Index {
	idx := Index{
		Stores:     make(map[string]Store, len(d.Stores)),
		Products:   make(map[string]Product, len(d.Products)),
		Customers:  make(map[string]Customer, len(d.Customers)),
		Promotions: make(map[string]Promotion, len(d.Promotions)),
	}
	for _, s := range d.Stores {
		idx.Stores[s.ID] = s
	}
	for _, p := range d.Products {
		idx.Products[p.ID] = p
	}
	for _, c := range d.Customers {
		idx.Customers[c.ID] = c
	}
	for _, p := range d.Promotions {
		idx.Promotions[p.ID] = p
	}
	return idx
}

// LinesByTransaction groups line items under their transaction ID,
// preserving input order within each group.
func LinesByTransaction(lines []SalesLineItem) map[string][]SalesLineItem {
	out := make(map[string][]SalesLineItem)
	for _, l := range lines {
		out[l.TransactionID] = append(out[l.TransactionID], l)
	}
	return out
}

// Day truncates t to UTC midnight.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// Money rounds d to cents.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Cents builds a money amount from an integer number of cents.
func Cents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// MustMoney parses a decimal literal and panics on malformed input.
// Intended for fixtures and constants.
func MustMoney(s string) decimal.Decimal {
	return Money(decimal.RequireFromString(s))
}
