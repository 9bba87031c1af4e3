// Package datagen produces synthetic retail tables from a seed.
//
// Generation never reads the wall clock: the observation window ends on the
// configured ref_date, and every random draw comes from a PCG source keyed
// by the seed. The same configuration therefore always yields the same
// Dataset, row for row.
package datagen

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/retailkit/internal/config"
	"github.com/roach88/retailkit/internal/model"
)

// Categories are assigned to products round-robin by product number.
var Categories = []string{"Electronics", "Apparel", "Grocery", "Home"}

// seedMix decorrelates the two PCG state words derived from one seed.
const seedMix = 0x9e3779b97f4a7c15

// Generator holds the random source and configuration for one dataset.
type Generator struct {
	cfg    *config.Config
	rng    *rand.Rand
	logger *slog.Logger
	window model.Window
}

// New creates a generator. A nil logger discards output.
func New(cfg *config.Config, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ref, err := cfg.Generator.RefTime()
	if err != nil {
		return nil, err
	}
	days := cfg.Generator.Days
	return &Generator{
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(cfg.Generator.Seed, cfg.Generator.Seed^seedMix)),
		logger: logger,
		window: model.Window{Start: ref.AddDate(0, 0, -(days - 1)), Days: days},
	}, nil
}

// Generate is a convenience wrapper around New and Generator.Dataset.
func Generate(cfg *config.Config, logger *slog.Logger) (*model.Dataset, error) {
	g, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return g.Dataset(), nil
}

// Dataset builds every table. Calling it twice on the same Generator
// continues the random stream; build a new Generator to reproduce a run.
func (g *Generator) Dataset() *model.Dataset {
	ds := &model.Dataset{
		Seed:         g.cfg.Generator.Seed,
		Window:       g.window,
		Stores:       g.stores(),
		Products:     g.products(),
		Promotions:   g.promotions(),
		LoyaltyRules: g.loyaltyRules(),
	}
	ds.Customers = g.customers()
	ds.Headers, ds.Lines = g.sales(ds)
	ds.Inventory = g.inventory(ds)

	g.logger.Debug("dataset generated",
		"seed", ds.Seed,
		"window_start", ds.Window.Start.Format(config.DateLayout),
		"days", ds.Window.Days,
		"headers", len(ds.Headers),
		"lines", len(ds.Lines),
		"snapshots", len(ds.Inventory),
	)
	return ds
}

func (g *Generator) stores() []model.Store {
	n := g.cfg.Generator.Stores
	out := make([]model.Store, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, model.Store{
			ID:          fmt.Sprintf("S%03d", i),
			Name:        fmt.Sprintf("Store %d", i),
			City:        fmt.Sprintf("City%d", i%3),
			Region:      fmt.Sprintf("Region%d", i%2+1),
			OpeningDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 30*i),
		})
	}
	return out
}

func (g *Generator) products() []model.Product {
	n := g.cfg.Generator.Products
	out := make([]model.Product, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, model.Product{
			ID:        fmt.Sprintf("P%04d", i),
			Name:      fmt.Sprintf("Product %d", i),
			Category:  Categories[i%len(Categories)],
			UnitPrice: model.Cents(500 + g.rng.Int64N(9501)),
		})
	}
	return out
}

func (g *Generator) customers() []model.Customer {
	n := g.cfg.Generator.Customers
	out := make([]model.Customer, 0, n)
	for i := 1; i <= n; i++ {
		c := model.Customer{
			ID:            fmt.Sprintf("C%05d", i),
			FirstName:     fmt.Sprintf("Cust%d", i),
			Email:         fmt.Sprintf("cust%d@example.com", i),
			LoyaltyStatus: "Bronze",
		}
		if g.rng.Float64() < g.cfg.Generator.HistoryShare {
			last := g.window.Start.AddDate(0, 0, -(1 + g.rng.IntN(180)))
			c.LastPurchase = &last
			c.LoyaltyBalance = g.rng.Int64N(401)
		}
		out = append(out, c)
	}
	return out
}

func (g *Generator) promotions() []model.Promotion {
	out := make([]model.Promotion, 0, len(g.cfg.Promotions))
	for _, p := range g.cfg.Promotions {
		out = append(out, model.Promotion{
			ID:       p.ID,
			Name:     p.Name,
			Start:    g.window.Start.AddDate(0, 0, p.StartDay),
			End:      g.window.Start.AddDate(0, 0, p.EndDay),
			Discount: decimal.NewFromFloat(p.Discount),
			Category: p.Category,
		})
	}
	return out
}

func (g *Generator) loyaltyRules() []model.LoyaltyRule {
	out := make([]model.LoyaltyRule, 0, len(g.cfg.Loyalty.Rules))
	for _, r := range g.cfg.Loyalty.Rules {
		out = append(out, model.LoyaltyRule{
			ID:            r.ID,
			Name:          r.Name,
			PointsPerUnit: decimal.NewFromFloat(r.PointsPerUnit),
			MinSpend:      model.Money(decimal.NewFromFloat(r.MinSpend)),
			BonusPoints:   r.BonusPoints,
		})
	}
	return out
}

// poisson draws from a Poisson distribution using Knuth's multiplication
// method. Config caps lambda at 500, well below where exp(-lambda)
// underflows.
func (g *Generator) poisson(lambda float64) int {
	limit := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		k++
		p *= g.rng.Float64()
		if p <= limit {
			return k - 1
		}
	}
}

func (g *Generator) sales(ds *model.Dataset) ([]model.SalesHeader, []model.SalesLineItem) {
	gen := g.cfg.Generator
	one := decimal.NewFromInt(1)

	var headers []model.SalesHeader
	var lines []model.SalesLineItem
	txNum := 1

	for _, day := range g.window.Dates() {
		count := g.poisson(gen.TxPerDay)
		for t := 0; t < count; t++ {
			txID := fmt.Sprintf("TX%06d", txNum)
			h := model.SalesHeader{
				TransactionID: txID,
				CustomerID:    ds.Customers[g.rng.IntN(len(ds.Customers))].ID,
				StoreID:       ds.Stores[g.rng.IntN(len(ds.Stores))].ID,
				Date:          day.Add(time.Duration(g.rng.IntN(86400)) * time.Second),
			}

			nLines := 1 + g.rng.IntN(gen.MaxLines)
			txLines := make([]model.SalesLineItem, 0, nLines)
			total := decimal.Zero
			for li := 0; li < nLines; li++ {
				prod := ds.Products[g.rng.IntN(len(ds.Products))]
				qty := int64(1 + g.rng.IntN(4))
				discount := decimal.Zero
				promoID := ""

				if active := activePromotions(ds.Promotions, prod.Category, h.Date); len(active) > 0 && g.rng.Float64() < gen.PromoProbability {
					promo := active[g.rng.IntN(len(active))]
					promoID = promo.ID
					discount = promo.Discount
					qty += int64(gen.PromoQuantityBoost)
				}

				amount := model.Money(prod.UnitPrice.Mul(decimal.NewFromInt(qty)).Mul(one.Sub(discount)))
				total = total.Add(amount)
				txLines = append(txLines, model.SalesLineItem{
					LineItemID:    fmt.Sprintf("L%07d%d", txNum, li),
					TransactionID: txID,
					ProductID:     prod.ID,
					PromotionID:   promoID,
					Quantity:      qty,
					Amount:        amount,
				})
			}
			h.TotalAmount = model.Money(total)

			g.corruptHeader(&h)
			for i := range txLines {
				g.corruptLine(&txLines[i])
			}

			headers = append(headers, h)
			lines = append(lines, txLines...)
			txNum++
		}
	}
	return headers, lines
}

func activePromotions(promos []model.Promotion, category string, at time.Time) []model.Promotion {
	var out []model.Promotion
	for _, p := range promos {
		if p.Category == category && p.ActiveOn(at) {
			out = append(out, p)
		}
	}
	return out
}

// inventory produces an end-of-day stock walk for every store and product:
// stock drains by 0-8 units a day, floors at zero, and a stocked-out pair
// is replenished the next morning half of the time.
func (g *Generator) inventory(ds *model.Dataset) []model.InventorySnapshot {
	dates := g.window.Dates()
	out := make([]model.InventorySnapshot, 0, len(ds.Stores)*len(ds.Products)*len(dates))
	for _, s := range ds.Stores {
		for _, p := range ds.Products {
			level := g.rng.Int64N(50)
			for _, d := range dates {
				if level == 0 && g.rng.Float64() < 0.5 {
					level = 20 + g.rng.Int64N(30)
				}
				level = max(0, level-g.rng.Int64N(9))
				out = append(out, model.InventorySnapshot{
					StoreID:    s.ID,
					ProductID:  p.ID,
					Date:       d,
					StockLevel: level,
				})
			}
		}
	}
	return out
}
