// Package inventory correlates store sales with daily stock snapshots for
// the best-selling products.
package inventory

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/retailkit/internal/config"
	"github.com/roach88/retailkit/internal/model"
)

// Risk classes by days of cover.
const (
	RiskUnknown     = "unknown"
	RiskCritical    = "critical"
	RiskWatchlist   = "watchlist"
	RiskOverstocked = "overstocked"
	RiskSafe        = "safe"
)

const ratePlaces = 4

// Row is one store × product pair.
//
// LostUnits is the average daily sales times the stock-out day count; it
// is exactly zero when the pair never ran out. DaysOfCover is nil when the
// pair sold nothing, which classifies as unknown risk.
type Row struct {
	StoreID       string           `json:"store_id"`
	City          string           `json:"store_city"`
	Region        string           `json:"store_region"`
	ProductID     string           `json:"product_id"`
	UnitsSold     int64            `json:"units_sold"`
	Transactions  int              `json:"tx_count"`
	AvgDailySales decimal.Decimal  `json:"avg_daily_sales"`
	SnapshotDays  int              `json:"snapshot_days"`
	StockOutDays  int              `json:"stock_out_days"`
	StockOutSales int64            `json:"units_sold_on_stock_out_days"`
	LostUnits     decimal.Decimal  `json:"potential_lost_units"`
	LostRevenue   decimal.Decimal  `json:"potential_lost_revenue"`
	CurrentStock  int64            `json:"current_stock_level"`
	DaysOfCover   *decimal.Decimal `json:"days_of_inventory_left"`
	Risk          string           `json:"risk"`
}

// RegionSummary rolls rows up by store region.
type RegionSummary struct {
	Region       string          `json:"store_region"`
	Pairs        int             `json:"pairs"`
	UnitsSold    int64           `json:"units_sold"`
	StockOutDays int             `json:"stock_out_days"`
	LostUnits    decimal.Decimal `json:"potential_lost_units"`
	LostRevenue  decimal.Decimal `json:"potential_lost_revenue"`
	Critical     int             `json:"critical_pairs"`
}

// Result holds the selected products, per-pair rows ordered by store then
// product, and the regional rollup ordered by region.
type Result struct {
	TopProducts []string        `json:"top_products"`
	Rows        []Row           `json:"rows"`
	Regions     []RegionSummary `json:"regions"`
}

type pairKey struct {
	store, product string
}

type dayKey struct {
	pairKey
	day time.Time
}

// Analyze joins sales and snapshots by store, product and date. Headers
// and lines should be analytics-ready; every store is paired with each of
// the top opts.TopN products by units sold, whether or not it sold them.
func Analyze(window model.Window, stores []model.Store, products []model.Product,
	headers []model.SalesHeader, lines []model.SalesLineItem,
	snapshots []model.InventorySnapshot, opts config.Inventory) Result {

	byTx := make(map[string]model.SalesHeader, len(headers))
	for _, h := range headers {
		byTx[h.TransactionID] = h
	}
	prices := make(map[string]decimal.Decimal, len(products))
	for _, p := range products {
		prices[p.ID] = p.UnitPrice
	}

	top := TopByUnits(lines, opts.TopN)
	isTop := make(map[string]bool, len(top))
	for _, id := range top {
		isTop[id] = true
	}

	units := make(map[pairKey]int64)
	txs := make(map[pairKey]map[string]bool)
	daily := make(map[dayKey]int64)
	for _, l := range lines {
		h, ok := byTx[l.TransactionID]
		if !ok || !isTop[l.ProductID] {
			continue
		}
		k := pairKey{h.StoreID, l.ProductID}
		units[k] += l.Quantity
		if txs[k] == nil {
			txs[k] = make(map[string]bool)
		}
		txs[k][h.TransactionID] = true
		daily[dayKey{k, model.Day(h.Date)}] += l.Quantity
	}

	type stock struct {
		days, outDays int
		outSales      int64
		latest        time.Time
		current       int64
		seen          bool
	}
	stocks := make(map[pairKey]*stock)
	for _, s := range snapshots {
		k := pairKey{s.StoreID, s.ProductID}
		if !isTop[s.ProductID] || !window.Contains(s.Date) {
			continue
		}
		st := stocks[k]
		if st == nil {
			st = &stock{}
			stocks[k] = st
		}
		d := model.Day(s.Date)
		st.days++
		if s.StockLevel == 0 {
			st.outDays++
			st.outSales += daily[dayKey{k, d}]
		}
		if !st.seen || d.After(st.latest) {
			st.latest, st.current, st.seen = d, s.StockLevel, true
		}
	}

	days := decimal.NewFromInt(int64(max(window.Days, 1)))
	res := Result{TopProducts: top}
	for _, store := range sortedStores(stores) {
		for _, pid := range top {
			k := pairKey{store.ID, pid}
			st := stocks[k]
			if st == nil {
				st = &stock{}
			}
			avg := decimal.NewFromInt(units[k]).Div(days)
			lost := avg.Mul(decimal.NewFromInt(int64(st.outDays)))

			row := Row{
				StoreID:       store.ID,
				City:          store.City,
				Region:        store.Region,
				ProductID:     pid,
				UnitsSold:     units[k],
				Transactions:  len(txs[k]),
				AvgDailySales: avg.Round(ratePlaces),
				SnapshotDays:  st.days,
				StockOutDays:  st.outDays,
				StockOutSales: st.outSales,
				LostUnits:     lost.Round(ratePlaces),
				LostRevenue:   model.Money(lost.Mul(prices[pid])),
				CurrentStock:  st.current,
			}
			if !avg.IsZero() {
				cover := decimal.NewFromInt(st.current).Div(avg).Round(2)
				row.DaysOfCover = &cover
			}
			row.Risk = Classify(row.DaysOfCover, opts)
			res.Rows = append(res.Rows, row)
		}
	}
	res.Regions = rollup(res.Rows)
	return res
}

// Classify maps days of cover onto a risk class: critical below
// CriticalDays, watchlist below WatchlistDays, overstocked above
// OverstockDays, otherwise safe. nil is unknown.
func Classify(cover *decimal.Decimal, opts config.Inventory) string {
	switch {
	case cover == nil:
		return RiskUnknown
	case cover.LessThan(decimal.NewFromFloat(opts.CriticalDays)):
		return RiskCritical
	case cover.LessThan(decimal.NewFromFloat(opts.WatchlistDays)):
		return RiskWatchlist
	case cover.GreaterThan(decimal.NewFromFloat(opts.OverstockDays)):
		return RiskOverstocked
	default:
		return RiskSafe
	}
}

// TopByUnits returns up to n product IDs by total units sold, ties broken
// by product ID.
func TopByUnits(lines []model.SalesLineItem, n int) []string {
	totals := make(map[string]int64)
	for _, l := range lines {
		totals[l.ProductID] += l.Quantity
	}
	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if c := cmp.Compare(totals[b], totals[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

func sortedStores(stores []model.Store) []model.Store {
	out := slices.Clone(stores)
	slices.SortFunc(out, func(a, b model.Store) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func rollup(rows []Row) []RegionSummary {
	byRegion := make(map[string]*RegionSummary)
	for _, r := range rows {
		s := byRegion[r.Region]
		if s == nil {
			s = &RegionSummary{Region: r.Region, LostUnits: decimal.Zero, LostRevenue: decimal.Zero}
			byRegion[r.Region] = s
		}
		s.Pairs++
		s.UnitsSold += r.UnitsSold
		s.StockOutDays += r.StockOutDays
		s.LostUnits = s.LostUnits.Add(r.LostUnits)
		s.LostRevenue = s.LostRevenue.Add(r.LostRevenue)
		if r.Risk == RiskCritical {
			s.Critical++
		}
	}
	out := make([]RegionSummary, 0, len(byRegion))
	for _, s := range byRegion {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b RegionSummary) int { return cmp.Compare(a.Region, b.Region) })
	return out
}
