package loyalty

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/roach88/retailkit/internal/config"
	"github.com/roach88/retailkit/internal/model"
)

// CoinEntry is one transaction's effect on a coin balance.
type CoinEntry struct {
	TransactionID string `json:"transaction_id"`
	CustomerID    string `json:"customer_id"`
	Earned        int64  `json:"coins_earned"`
	Redeemed      int64  `json:"coins_redeemed"`
	Balance       int64  `json:"updated_balance"`
}

// Coins is the earn-and-redeem program. Each transaction earns
// min(floor(amount × EarnRate), EarnCap) coins and redeems
// min(floor(existing × RedeemRate), earned) of the balance held before it.
type Coins struct {
	EarnRate   decimal.Decimal
	EarnCap    int64
	RedeemRate decimal.Decimal
}

// NewCoins builds the program from configuration.
func NewCoins(c config.Coins) Coins {
	return Coins{
		EarnRate:   decimal.NewFromFloat(c.EarnRate),
		EarnCap:    c.EarnCap,
		RedeemRate: decimal.NewFromFloat(c.RedeemRate),
	}
}

// Run posts headers in (date, transaction ID) order against the customers'
// opening balances. Each transaction ID is posted once.
func (p Coins) Run(customers []model.Customer, headers []model.SalesHeader) []CoinEntry {
	balances := make(map[string]int64, len(customers))
	for _, c := range customers {
		balances[c.ID] = c.LoyaltyBalance
	}

	ordered := slices.Clone(headers)
	slices.SortStableFunc(ordered, func(a, b model.SalesHeader) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.TransactionID, b.TransactionID)
	})

	seen := make(map[string]bool, len(ordered))
	out := make([]CoinEntry, 0, len(ordered))
	for _, h := range ordered {
		if seen[h.TransactionID] {
			continue
		}
		seen[h.TransactionID] = true

		existing := balances[h.CustomerID]
		earned := p.earn(h.TotalAmount)
		redeemed := min(decimal.NewFromInt(existing).Mul(p.RedeemRate).Floor().IntPart(), earned)
		balances[h.CustomerID] = existing + earned - redeemed
		out = append(out, CoinEntry{
			TransactionID: h.TransactionID,
			CustomerID:    h.CustomerID,
			Earned:        earned,
			Redeemed:      redeemed,
			Balance:       balances[h.CustomerID],
		})
	}
	return out
}

func (p Coins) earn(amount decimal.Decimal) int64 {
	if amount.IsNegative() {
		return 0
	}
	return min(amount.Mul(p.EarnRate).Floor().IntPart(), p.EarnCap)
}
