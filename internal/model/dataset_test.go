package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow(t *testing.T) {
	w := Window{Start: time.Date(2025, 1, 4, 15, 30, 0, 0, time.UTC), Days: 28}

	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), w.End())
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), w.RefDate())

	assert.True(t, w.Contains(time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2025, 1, 3, 23, 59, 0, 0, time.UTC)))

	dates := w.Dates()
	require.Len(t, dates, 28)
	assert.Equal(t, Day(w.Start), dates[0])
	assert.Equal(t, w.RefDate(), dates[27])
}

func TestPromotionActiveOn(t *testing.T) {
	p := Promotion{
		Start: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"day before", time.Date(2025, 1, 9, 23, 0, 0, 0, time.UTC), false},
		{"first day", time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC), true},
		{"last day evening", time.Date(2025, 1, 12, 22, 0, 0, 0, time.UTC), true},
		{"day after", time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ActiveOn(tt.at))
		})
	}
}

func TestIndexAndGrouping(t *testing.T) {
	ds := &Dataset{
		Stores:   []Store{{ID: "S001"}, {ID: "S002"}},
		Products: []Product{{ID: "P0001", UnitPrice: MustMoney("9.99")}},
		Lines: []SalesLineItem{
			{LineItemID: "L1", TransactionID: "TX1"},
			{LineItemID: "L2", TransactionID: "TX2"},
			{LineItemID: "L3", TransactionID: "TX1"},
		},
	}

	idx := ds.Index()
	assert.Len(t, idx.Stores, 2)
	assert.Equal(t, "9.99", idx.Products["P0001"].UnitPrice.StringFixed(2))

	grouped := LinesByTransaction(ds.Lines)
	require.Len(t, grouped["TX1"], 2)
	assert.Equal(t, "L1", grouped["TX1"][0].LineItemID)
	assert.Equal(t, "L3", grouped["TX1"][1].LineItemID)
}

func TestMoneyHelpers(t *testing.T) {
	assert.Equal(t, "1.23", Cents(123).StringFixed(2))
	assert.Equal(t, "10.01", Money(MustMoney("10.005")).StringFixed(2))
	assert.Equal(t, 3, DaysBetween(
		time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 4, 1, 0, 0, 0, time.UTC),
	))
}
