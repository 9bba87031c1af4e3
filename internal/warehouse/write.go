package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/retailkit/internal/pipeline"
	"github.com/roach88/retailkit/internal/report"
)

// RunNamespace derives run IDs from summary digests.
var RunNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("warehouse.retailkit"))

// RunID is the ID a run with the given summary digest is stored under.
func RunID(digest string) string {
	return uuid.NewSHA1(RunNamespace, []byte(digest)).String()
}

// WriteRun stores the dataset and recipe results of a run in one
// transaction and returns the run ID.
//
// The ID is derived from the summary digest, so writing the same run twice
// leaves the snapshot unchanged.
func (s *Store) WriteRun(ctx context.Context, res *pipeline.Result) (string, error) {
	canonical, err := res.Summary.Canonical()
	if err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}
	digest := report.Digest(canonical)
	id := RunID(digest)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	sum := res.Summary
	ins, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, seed, window_start, days, recipes, digest, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		fmt.Sprint(sum.Seed),
		sum.Window.Start,
		sum.Window.Days,
		strings.Join(sum.Recipes, ","),
		digest,
		string(canonical),
	)
	if err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}
	n, err := ins.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}
	if n == 0 {
		return id, nil
	}

	w := writer{ctx: ctx, tx: tx, runID: id}
	w.dataset(res)
	w.results(res)
	if w.err != nil {
		return "", fmt.Errorf("write run: %w", w.err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("write run: commit: %w", err)
	}
	return id, nil
}

// DeleteRun removes a run and every row that belongs to it. Deleting an
// unknown run is not an error.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

// writer batches inserts for one run and keeps the first error.
type writer struct {
	ctx   context.Context
	tx    *sql.Tx
	runID string
	err   error
}

// insert prepares query once and executes it for each of n rows. The run
// ID is prepended to every row's arguments.
func (w *writer) insert(table string, columns []string, n int, row func(i int) []any) {
	if w.err != nil || n == 0 {
		return
	}
	cols := append([]string{"run_id"}, columns...)
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))

	stmt, err := w.tx.PrepareContext(w.ctx, query)
	if err != nil {
		w.err = fmt.Errorf("prepare %s: %w", table, err)
		return
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		args := append([]any{w.runID}, row(i)...)
		if _, err := stmt.ExecContext(w.ctx, args...); err != nil {
			w.err = fmt.Errorf("insert %s: %w", table, err)
			return
		}
	}
}

func (w *writer) dataset(res *pipeline.Result) {
	ds := res.Dataset

	w.insert("stores", []string{"store_id", "store_name", "store_city", "store_region", "opening_date"}, len(ds.Stores), func(i int) []any {
		st := ds.Stores[i]
		return []any{st.ID, st.Name, st.City, st.Region, formatDate(st.OpeningDate)}
	})
	w.insert("products", []string{"product_id", "product_name", "product_category", "unit_price"}, len(ds.Products), func(i int) []any {
		p := ds.Products[i]
		return []any{p.ID, p.Name, p.Category, p.UnitPrice.StringFixed(2)}
	})
	w.insert("customers", []string{"customer_id", "first_name", "email", "loyalty_status", "total_loyalty_points", "last_purchase_date"}, len(ds.Customers), func(i int) []any {
		c := ds.Customers[i]
		return []any{c.ID, c.FirstName, c.Email, c.LoyaltyStatus, c.LoyaltyBalance, nullDate(c.LastPurchase)}
	})
	w.insert("promotions", []string{"promotion_id", "promotion_name", "start_date", "end_date", "discount_percentage", "applicable_category"}, len(ds.Promotions), func(i int) []any {
		p := ds.Promotions[i]
		return []any{p.ID, p.Name, formatDate(p.Start), formatDate(p.End), p.Discount.String(), p.Category}
	})
	w.insert("loyalty_rules", []string{"rule_id", "rule_name", "points_per_unit_spend", "min_spend_threshold", "bonus_points"}, len(ds.LoyaltyRules), func(i int) []any {
		r := ds.LoyaltyRules[i]
		return []any{r.ID, r.Name, r.PointsPerUnit.String(), r.MinSpend.StringFixed(2), r.BonusPoints}
	})

	quarantined := make(map[string]bool)
	if res.Quality != nil {
		for _, q := range res.Quality.QuarantinedHeaders {
			quarantined["h/"+q.Row.TransactionID] = true
		}
		for _, q := range res.Quality.QuarantinedLines {
			quarantined["l/"+q.Row.LineItemID] = true
		}
	}

	w.insert("sales_headers", []string{"transaction_id", "customer_id", "store_id", "transaction_date", "total_amount", "quarantined"}, len(ds.Headers), func(i int) []any {
		h := ds.Headers[i]
		return []any{h.TransactionID, h.CustomerID, h.StoreID, formatTime(h.Date), h.TotalAmount.StringFixed(2), quarantined["h/"+h.TransactionID]}
	})
	w.insert("sales_line_items", []string{"line_item_id", "transaction_id", "product_id", "promotion_id", "quantity", "line_item_amount", "quarantined"}, len(ds.Lines), func(i int) []any {
		l := ds.Lines[i]
		return []any{l.LineItemID, l.TransactionID, l.ProductID, l.PromotionID, l.Quantity, l.Amount.StringFixed(2), quarantined["l/"+l.LineItemID]}
	})
	w.insert("inventory_snapshots", []string{"store_id", "product_id", "snapshot_date", "current_stock_level"}, len(ds.Inventory), func(i int) []any {
		s := ds.Inventory[i]
		return []any{s.StoreID, s.ProductID, formatDate(s.Date), s.StockLevel}
	})
}

type quarantineRow struct {
	table, id, reason string
}

func (w *writer) results(res *pipeline.Result) {
	sum := res.Summary

	if res.Quality != nil {
		var rows []quarantineRow
		for _, q := range res.Quality.QuarantinedHeaders {
			for _, r := range q.Reasons {
				rows = append(rows, quarantineRow{"headers", q.Row.TransactionID, string(r)})
			}
		}
		for _, q := range res.Quality.QuarantinedLines {
			for _, r := range q.Reasons {
				rows = append(rows, quarantineRow{"lines", q.Row.LineItemID, string(r)})
			}
		}
		w.insert("quarantine", []string{"table_name", "row_id", "reason"}, len(rows), func(i int) []any {
			return []any{rows[i].table, rows[i].id, rows[i].reason}
		})
	}

	w.insert("loyalty_accruals", []string{"transaction_id", "customer_id", "rule_id", "points", "balance"}, len(res.Accruals), func(i int) []any {
		a := res.Accruals[i]
		return []any{a.TransactionID, a.CustomerID, a.RuleID, a.Points, a.Balance}
	})
	w.insert("coin_entries", []string{"transaction_id", "customer_id", "coins_earned", "coins_redeemed", "balance"}, len(res.Coins), func(i int) []any {
		c := res.Coins[i]
		return []any{c.TransactionID, c.CustomerID, c.Earned, c.Redeemed, c.Balance}
	})

	if seg := sum.Segments; seg != nil {
		w.insert("segments", []string{"customer_id", "recency_days", "frequency", "monetary", "r_score", "f_score", "m_score", "monetary_decile", "segment", "reactivation"}, len(seg.Profiles), func(i int) []any {
			p := seg.Profiles[i]
			var recency any
			if p.RecencyDays != nil {
				recency = *p.RecencyDays
			}
			return []any{p.CustomerID, recency, p.Frequency, p.Monetary.StringFixed(2), p.RScore, p.FScore, p.MScore, p.MonetaryDecile, p.Segment, p.Reactivation}
		})
	}

	if n := sum.Notifications; n != nil {
		w.insert("notifications", []string{"message_id", "customer_id", "template_used", "subject", "body", "call_to_action"}, len(n.Messages), func(i int) []any {
			m := n.Messages[i]
			return []any{m.ID, m.CustomerID, m.Template, m.Subject, m.Body, m.CallToAction}
		})
	}

	if inv := sum.Inventory; inv != nil {
		w.insert("inventory_risk", []string{"store_id", "product_id", "units_sold", "avg_daily_sales", "stock_out_days", "potential_lost_units", "potential_lost_revenue", "current_stock_level", "days_of_inventory_left", "risk"}, len(inv.Rows), func(i int) []any {
			r := inv.Rows[i]
			var cover any
			if r.DaysOfCover != nil {
				cover = r.DaysOfCover.String()
			}
			return []any{r.StoreID, r.ProductID, r.UnitsSold, r.AvgDailySales.String(), r.StockOutDays, r.LostUnits.String(), r.LostRevenue.StringFixed(2), r.CurrentStock, cover, r.Risk}
		})
	}

	events := res.Activity.Events
	w.insert("activity_events", []string{"seq", "event_date", "customer_id", "event", "ref", "promotion_id", "points"}, len(events), func(i int) []any {
		e := events[i]
		return []any{i + 1, formatDate(e.Date), e.CustomerID, e.Kind, e.Ref, e.PromotionID, e.Points}
	})
}
