package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, uint64(42), cfg.Generator.Seed)
	assert.Equal(t, "2025-01-31", cfg.Generator.RefDate)
	assert.Equal(t, 28, cfg.Generator.Days)
	assert.Equal(t, 6, cfg.Generator.Stores)
	assert.Equal(t, 30, cfg.Generator.Products)
	assert.Equal(t, 300, cfg.Generator.Customers)
	assert.InDelta(t, 20.0, cfg.Generator.TxPerDay, 1e-9)

	require.Len(t, cfg.Promotions, 2)
	assert.Equal(t, "PR001", cfg.Promotions[0].ID)
	assert.Equal(t, "Electronics", cfg.Promotions[0].Category)
	assert.InDelta(t, 0.15, cfg.Promotions[1].Discount, 1e-9)

	require.Len(t, cfg.Loyalty.Rules, 2)
	assert.Equal(t, int64(50), cfg.Loyalty.Rules[1].BonusPoints)
	assert.Equal(t, int64(100), cfg.Loyalty.Coins.EarnCap)

	assert.Equal(t, 60, cfg.Segmentation.AtRiskDays)
	assert.Equal(t, 5, cfg.Inventory.TopN)
	assert.Equal(t, int64(100), cfg.Notify.RewardStep)

	ref, err := cfg.Generator.RefTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), ref)
}

func TestParseOverrides(t *testing.T) {
	src := `
generator: seed: 7
generator: days: 14
inventory: top_n: 3
promotions: [
	{id: "PRX", name: "Home Days", start_day: 2, end_day: 4, discount: 0.05, category: "Home"},
]
`
	cfg, err := Parse("override.cue", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, uint64(7), cfg.Generator.Seed)
	assert.Equal(t, 14, cfg.Generator.Days)
	assert.Equal(t, 300, cfg.Generator.Customers, "untouched fields keep defaults")
	assert.Equal(t, 3, cfg.Inventory.TopN)
	require.Len(t, cfg.Promotions, 1)
	assert.Equal(t, "PRX", cfg.Promotions[0].ID)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"syntax error", `generator: {`, ErrCodeCompile},
		{"out of bounds", `generator: days: 0`, ErrCodeUnify},
		{"unknown field", `generatr: seed: 1`, ErrCodeUnify},
		{"transaction rate too high", `generator: tx_per_day: 800.0`, ErrCodeUnify},
		{"bad category", `promotions: [{id: "X", name: "x", start_day: 0, end_day: 1, discount: 0.1, category: "Toys"}]`, ErrCodeUnify},
		{"end before start", `promotions: [{id: "X", name: "x", start_day: 5, end_day: 1, discount: 0.1, category: "Home"}]`, ErrCodeInvalid},
		{"duplicate promotion", `promotions: [
			{id: "X", name: "x", start_day: 0, end_day: 1, discount: 0.1, category: "Home"},
			{id: "X", name: "y", start_day: 2, end_day: 3, discount: 0.1, category: "Home"},
		]`, ErrCodeInvalid},
		{"watchlist below critical", `inventory: {critical_days: 5.0, watchlist_days: 1.0}`, ErrCodeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("test.cue", []byte(tt.src))
			require.Error(t, err)

			var le *LoadError
			require.True(t, errors.As(err, &le), "expected LoadError, got %T", err)
			assert.Equal(t, tt.code, le.Code, le.Error())
		})
	}
}

func TestValidateTransactionRate(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	cfg.Generator.TxPerDay = 500
	require.NoError(t, Validate(cfg))

	cfg.Generator.TxPerDay = 800
	err = Validate(cfg)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeInvalid, le.Code)
	assert.Contains(t, le.Message, "TxPerDay")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "retailkit.cue")
	require.NoError(t, os.WriteFile(path, []byte(`generator: customers: 50`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Generator.Customers)

	_, err = Load(filepath.Join(dir, "missing.cue"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeRead, le.Code)
}
