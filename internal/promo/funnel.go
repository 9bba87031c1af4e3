package promo

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/roach88/retailkit/internal/model"
)

// FunnelStage counts customers reaching each step of a promotion funnel.
//
// Eligible customers transacted while the promotion ran; reacted customers
// among them bought at least one line carrying it. Purchased equals
// reacted because a line only carries a promotion when the promoted item
// was bought.
type FunnelStage struct {
	PromotionID  string          `json:"promotion_id"`
	Name         string          `json:"promotion_name"`
	Eligible     int             `json:"eligible"`
	Reacted      int             `json:"reacted"`
	Purchased    int             `json:"purchased"`
	PctReacted   decimal.Decimal `json:"pct_reacted"`
	PctPurchased decimal.Decimal `json:"pct_purchased"`
}

// Funnel computes one stage row per promotion.
func Funnel(promotions []model.Promotion, headers []model.SalesHeader, lines []model.SalesLineItem) []FunnelStage {
	customerOf := make(map[string]string, len(headers))
	for _, h := range headers {
		customerOf[h.TransactionID] = h.CustomerID
	}

	out := make([]FunnelStage, 0, len(promotions))
	for _, p := range promotions {
		eligible := make(map[string]bool)
		for _, h := range headers {
			if p.ActiveOn(h.Date) {
				eligible[h.CustomerID] = true
			}
		}
		reacted := make(map[string]bool)
		for _, l := range lines {
			if l.PromotionID != p.ID {
				continue
			}
			if c, ok := customerOf[l.TransactionID]; ok && eligible[c] {
				reacted[c] = true
			}
		}

		stage := FunnelStage{
			PromotionID:  p.ID,
			Name:         p.Name,
			Eligible:     len(eligible),
			Reacted:      len(reacted),
			Purchased:    len(reacted),
			PctReacted:   percent(len(reacted), len(eligible)),
			PctPurchased: percent(len(reacted), len(eligible)),
		}
		out = append(out, stage)
	}
	return out
}

func percent(part, whole int) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part * 100)).Div(decimal.NewFromInt(int64(whole))).Round(2)
}

// TopProduct is a product ranked by revenue.
type TopProduct struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"product_name"`
	Revenue   decimal.Decimal `json:"total_sales"`
	Units     int64           `json:"total_qty"`
}

// TopProducts ranks products by revenue, ties broken by product ID, and
// returns at most n of them.
func TopProducts(products []model.Product, lines []model.SalesLineItem, n int) []TopProduct {
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	byID := make(map[string]*TopProduct)
	for _, l := range lines {
		t := byID[l.ProductID]
		if t == nil {
			t = &TopProduct{ProductID: l.ProductID, Name: names[l.ProductID], Revenue: decimal.Zero}
			byID[l.ProductID] = t
		}
		t.Revenue = t.Revenue.Add(l.Amount)
		t.Units += l.Quantity
	}

	out := make([]TopProduct, 0, len(byID))
	for _, t := range byID {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b TopProduct) int {
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
