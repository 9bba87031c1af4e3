package testutil

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/retailkit/internal/model"
)

// FixtureStart is the first day of every fixture window.
var FixtureStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Line describes one line item of a fixture sale.
type Line struct {
	Product string
	Promo   string
	Qty     int64
	Amount  string
}

// Fixture builds small datasets whose recipe outputs can be worked out by
// hand. Days are offsets from FixtureStart; sales are stamped at noon.
//
// Example:
//
//	ds := testutil.NewFixture(7).
//	    Store("S001", "City1", "Region1").
//	    Product("P0001", "Home", "10.00").
//	    Customer("C00001", 0, nil).
//	    Sale("TX1", "C00001", "S001", 0, testutil.Line{Product: "P0001", Qty: 2, Amount: "20.00"}).
//	    Dataset()
type Fixture struct {
	ds *model.Dataset
}

// NewFixture starts an empty dataset with a window of the given length.
func NewFixture(days int) *Fixture {
	return &Fixture{ds: &model.Dataset{
		Window: model.Window{Start: FixtureStart, Days: days},
	}}
}

// Day returns the fixture date for a day offset.
func Day(offset int) time.Time {
	return FixtureStart.AddDate(0, 0, offset)
}

// Ago returns a pointer to the date n days before FixtureStart.
func Ago(n int) *time.Time {
	t := FixtureStart.AddDate(0, 0, -n)
	return &t
}

func (f *Fixture) Store(id, city, region string) *Fixture {
	f.ds.Stores = append(f.ds.Stores, model.Store{ID: id, Name: "Store " + id, City: city, Region: region})
	return f
}

func (f *Fixture) Product(id, category, price string) *Fixture {
	f.ds.Products = append(f.ds.Products, model.Product{
		ID:        id,
		Name:      "Product " + id,
		Category:  category,
		UnitPrice: model.MustMoney(price),
	})
	return f
}

func (f *Fixture) Customer(id string, balance int64, last *time.Time) *Fixture {
	f.ds.Customers = append(f.ds.Customers, model.Customer{
		ID:             id,
		FirstName:      "First" + id,
		Email:          id + "@example.com",
		LoyaltyStatus:  "Bronze",
		LoyaltyBalance: balance,
		LastPurchase:   last,
	})
	return f
}

// Promotion adds a promotion active from startDay to endDay inclusive.
func (f *Fixture) Promotion(id, category string, startDay, endDay int, discount string) *Fixture {
	f.ds.Promotions = append(f.ds.Promotions, model.Promotion{
		ID:       id,
		Name:     "Promo " + id,
		Start:    Day(startDay),
		End:      Day(endDay),
		Discount: decimal.RequireFromString(discount),
		Category: category,
	})
	return f
}

// Rule adds a loyalty tier.
func (f *Fixture) Rule(id int64, rate, minSpend string, bonus int64) *Fixture {
	f.ds.LoyaltyRules = append(f.ds.LoyaltyRules, model.LoyaltyRule{
		ID:            id,
		Name:          fmt.Sprintf("Rule %d", id),
		PointsPerUnit: decimal.RequireFromString(rate),
		MinSpend:      model.MustMoney(minSpend),
		BonusPoints:   bonus,
	})
	return f
}

// Sale adds a header whose total is the sum of its lines.
func (f *Fixture) Sale(txID, customer, store string, day int, lines ...Line) *Fixture {
	total := decimal.Zero
	for i, l := range lines {
		amount := model.MustMoney(l.Amount)
		total = total.Add(amount)
		f.ds.Lines = append(f.ds.Lines, model.SalesLineItem{
			LineItemID:    fmt.Sprintf("%s-%d", txID, i),
			TransactionID: txID,
			ProductID:     l.Product,
			PromotionID:   l.Promo,
			Quantity:      l.Qty,
			Amount:        amount,
		})
	}
	f.ds.Headers = append(f.ds.Headers, model.SalesHeader{
		TransactionID: txID,
		CustomerID:    customer,
		StoreID:       store,
		Date:          Day(day).Add(12 * time.Hour),
		TotalAmount:   total,
	})
	return f
}

// Header appends a raw header without lines.
func (f *Fixture) Header(h model.SalesHeader) *Fixture {
	f.ds.Headers = append(f.ds.Headers, h)
	return f
}

// RawLine appends a raw line item.
func (f *Fixture) RawLine(l model.SalesLineItem) *Fixture {
	f.ds.Lines = append(f.ds.Lines, l)
	return f
}

// Stock adds one snapshot per level, starting on day 0.
func (f *Fixture) Stock(store, product string, levels ...int64) *Fixture {
	for i, lvl := range levels {
		f.ds.Inventory = append(f.ds.Inventory, model.InventorySnapshot{
			StoreID:    store,
			ProductID:  product,
			Date:       Day(i),
			StockLevel: lvl,
		})
	}
	return f
}

// Dataset returns the built dataset.
func (f *Fixture) Dataset() *model.Dataset {
	return f.ds
}
