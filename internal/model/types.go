package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Store is a physical retail location.
type Store struct {
	ID          string    `json:"store_id"`
	Name        string    `json:"store_name"`
	City        string    `json:"store_city"`
	Region      string    `json:"store_region"`
	OpeningDate time.Time `json:"opening_date"`
}

// Product is a sellable item with a list price.
type Product struct {
	ID        string          `json:"product_id"`
	Name      string          `json:"product_name"`
	Category  string          `json:"product_category"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Customer is a loyalty-program member.
//
// LastPurchase records activity before the observation window and is nil
// for customers with no known history.
type Customer struct {
	ID             string     `json:"customer_id"`
	FirstName      string     `json:"first_name"`
	Email          string     `json:"email"`
	LoyaltyStatus  string     `json:"loyalty_status"`
	LoyaltyBalance int64      `json:"total_loyalty_points"`
	LastPurchase   *time.Time `json:"last_purchase_date"`
}

// Promotion discounts every product of one category between Start and End
// (both inclusive, day granularity).
type Promotion struct {
	ID       string          `json:"promotion_id"`
	Name     string          `json:"promotion_name"`
	Start    time.Time       `json:"start_date"`
	End      time.Time       `json:"end_date"`
	Discount decimal.Decimal `json:"discount_percentage"`
	Category string          `json:"applicable_category"`
}

// ActiveOn reports whether the promotion covers the calendar day of t.
func (p Promotion) ActiveOn(t time.Time) bool {
	d := Day(t)
	return !d.Before(Day(p.Start)) && !d.After(Day(p.End))
}

// LoyaltyRule is one tier of the point-earning schedule.
type LoyaltyRule struct {
	ID            int64           `json:"rule_id"`
	Name          string          `json:"rule_name"`
	PointsPerUnit decimal.Decimal `json:"points_per_unit_spend"`
	MinSpend      decimal.Decimal `json:"min_spend_threshold"`
	BonusPoints   int64           `json:"bonus_points"`
}

// SalesHeader is one checkout transaction.
type SalesHeader struct {
	TransactionID string          `json:"transaction_id"`
	CustomerID    string          `json:"customer_id"`
	StoreID       string          `json:"store_id"`
	Date          time.Time       `json:"transaction_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// SalesLineItem is one product line of a transaction. PromotionID is empty
// when no promotion was applied.
type SalesLineItem struct {
	LineItemID    string          `json:"line_item_id"`
	TransactionID string          `json:"transaction_id"`
	ProductID     string          `json:"product_id"`
	PromotionID   string          `json:"promotion_id"`
	Quantity      int64           `json:"quantity"`
	Amount        decimal.Decimal `json:"line_item_amount"`
}

// InventorySnapshot is the end-of-day stock level for a store and product.
type InventorySnapshot struct {
	StoreID    string    `json:"store_id"`
	ProductID  string    `json:"product_id"`
	Date       time.Time `json:"snapshot_date"`
	StockLevel int64     `json:"current_stock_level"`
}

// Window is the observation period covered by the sales and inventory tables.
type Window struct {
	Start time.Time `json:"start"`
	Days  int       `json:"days"`
}

// End returns the first day after the window.
func (w Window) End() time.Time {
	return Day(w.Start).AddDate(0, 0, w.Days)
}

// RefDate is the reporting date: the last day of the window.
func (w Window) RefDate() time.Time {
	return w.End().AddDate(0, 0, -1)
}

// Contains reports whether t falls on a day inside the window.
func (w Window) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(Day(w.Start)) && d.Before(w.End())
}

// Dates returns every day of the window in order.
func (w Window) Dates() []time.Time {
	out := make([]time.Time, w.Days)
	start := Day(w.Start)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}
