package promo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/retailkit/internal/model"
	"github.com/roach88/retailkit/internal/testutil"
)

func promoFixture() *model.Dataset {
	return testutil.NewFixture(10).
		Store("S001", "City1", "Region1").
		Product("P1", "Electronics", "10.00").
		Product("P2", "Home", "5.00").
		Customer("C1", 0, nil).
		Customer("C2", 0, nil).
		Customer("C3", 0, nil).
		Promotion("PR1", "Electronics", 2, 4, "0.10").
		Promotion("PR2", "Home", 0, 9, "0.10").
		Promotion("PR3", "Apparel", 0, 1, "0.20").
		Sale("TX1", "C1", "S001", 0, testutil.Line{Product: "P1", Qty: 2, Amount: "20.00"}).
		Sale("TX2", "C1", "S001", 5, testutil.Line{Product: "P1", Qty: 5, Amount: "50.00"}).
		Sale("TX3", "C1", "S001", 2, testutil.Line{Product: "P1", Promo: "PR1", Qty: 3, Amount: "27.00"}).
		Sale("TX4", "C2", "S001", 3, testutil.Line{Product: "P1", Promo: "PR1", Qty: 3, Amount: "27.00"}).
		Sale("TX5", "C3", "S001", 3, testutil.Line{Product: "P1", Qty: 1, Amount: "10.00"}).
		Sale("TX6", "C2", "S001", 1, testutil.Line{Product: "P2", Promo: "PR2", Qty: 2, Amount: "9.00"}).
		Dataset()
}

func analyze(ds *model.Dataset) Effectiveness {
	return Analyze(ds.Window, ds.Promotions, ds.Products, ds.Headers, ds.Lines)
}

func TestAnalyzeUplift(t *testing.T) {
	eff := analyze(promoFixture())

	require.Len(t, eff.Products, 2)
	row := eff.Products[0]
	assert.Equal(t, "PR1", row.PromotionID)
	assert.Equal(t, "P1", row.ProductID)
	assert.Equal(t, 3, row.ActiveDays)
	assert.Equal(t, 7, row.BaselineDays)
	assert.Equal(t, 2, row.PromotedLines)
	assert.Equal(t, 2, row.BaselineLines, "the unpromoted sale on an active day is not baseline")
	assert.Equal(t, int64(6), row.PromotedUnits)
	assert.Equal(t, int64(7), row.BaselineUnits)
	assert.Equal(t, "54.00", row.PromotedRevenue.StringFixed(2))
	assert.Equal(t, "70.00", row.BaselineRevenue.StringFixed(2))
	assert.Equal(t, "2.0000", row.PromotedDailyUnits.StringFixed(4))
	assert.Equal(t, "1.0000", row.BaselineDailyUnits.StringFixed(4))
	assert.Equal(t, "18.0000", row.PromotedDailyRevenue.StringFixed(4))
	assert.Equal(t, "10.0000", row.BaselineDailyRevenue.StringFixed(4))

	require.NotNil(t, row.UnitUplift)
	require.NotNil(t, row.RevenueUplift)
	assert.Equal(t, "1.0000", row.UnitUplift.StringFixed(4))
	assert.Equal(t, "0.8000", row.RevenueUplift.StringFixed(4))
}

func TestAnalyzeUndefinedWithoutBaseline(t *testing.T) {
	eff := analyze(promoFixture())

	row := eff.Products[1]
	assert.Equal(t, "PR2", row.PromotionID)
	assert.Equal(t, "P2", row.ProductID)
	assert.Equal(t, 0, row.BaselineDays)
	assert.Equal(t, 0, row.BaselineLines)
	assert.Nil(t, row.UnitUplift)
	assert.Nil(t, row.RevenueUplift)
}

func TestAnalyzeRollups(t *testing.T) {
	eff := analyze(promoFixture())

	require.Len(t, eff.Promotions, 3)
	pr1 := eff.Promotions[0]
	assert.Equal(t, "", pr1.ProductID)
	require.NotNil(t, pr1.UnitUplift)
	assert.Equal(t, "1.0000", pr1.UnitUplift.StringFixed(4))

	assert.Equal(t, 0, pr1.NoBaselineProducts)

	pr2 := eff.Promotions[1]
	assert.Equal(t, 1, pr2.NoBaselineProducts)
	assert.Equal(t, 0, pr2.PromotedLines)
	assert.Nil(t, pr2.UnitUplift)

	pr3 := eff.Promotions[2]
	assert.Equal(t, "PR3", pr3.PromotionID)
	assert.Equal(t, 2, pr3.ActiveDays)
	assert.Equal(t, 0, pr3.PromotedLines)
	assert.Nil(t, pr3.UnitUplift)
	assert.Nil(t, pr3.RevenueUplift)
}

func TestAnalyzeRollupSkipsProductsWithoutBaseline(t *testing.T) {
	// P3 only ever sells under PR1, so it has no baseline of its own.
	ds := testutil.NewFixture(10).
		Store("S001", "City1", "Region1").
		Product("P1", "Electronics", "10.00").
		Product("P3", "Electronics", "9.00").
		Customer("C1", 0, nil).
		Customer("C2", 0, nil).
		Promotion("PR1", "Electronics", 2, 4, "0.10").
		Sale("TX1", "C1", "S001", 0, testutil.Line{Product: "P1", Qty: 2, Amount: "20.00"}).
		Sale("TX2", "C1", "S001", 5, testutil.Line{Product: "P1", Qty: 5, Amount: "50.00"}).
		Sale("TX3", "C1", "S001", 2, testutil.Line{Product: "P1", Promo: "PR1", Qty: 3, Amount: "27.00"}).
		Sale("TX4", "C2", "S001", 3, testutil.Line{Product: "P1", Promo: "PR1", Qty: 3, Amount: "27.00"}).
		Sale("TX5", "C2", "S001", 3, testutil.Line{Product: "P3", Promo: "PR1", Qty: 3, Amount: "24.30"}).
		Dataset()

	eff := analyze(ds)

	require.Len(t, eff.Products, 2)
	p3 := eff.Products[1]
	assert.Equal(t, "P3", p3.ProductID)
	assert.Equal(t, 0, p3.BaselineLines)
	assert.Nil(t, p3.UnitUplift)

	require.Len(t, eff.Promotions, 1)
	pr1 := eff.Promotions[0]
	assert.Equal(t, 1, pr1.NoBaselineProducts)
	assert.Equal(t, 2, pr1.PromotedLines)
	assert.Equal(t, int64(6), pr1.PromotedUnits)
	assert.Equal(t, "2.0000", pr1.PromotedDailyUnits.StringFixed(4))
	require.NotNil(t, pr1.UnitUplift)
	assert.Equal(t, "1.0000", pr1.UnitUplift.StringFixed(4))
	require.NotNil(t, pr1.RevenueUplift)
	assert.Equal(t, "0.8000", pr1.RevenueUplift.StringFixed(4))
}

func TestAnalyzeEmpty(t *testing.T) {
	ds := testutil.NewFixture(7).Promotion("PR1", "Home", 0, 2, "0.10").Dataset()

	assert.NotPanics(t, func() {
		eff := analyze(ds)
		require.Len(t, eff.Promotions, 1)
		assert.Empty(t, eff.Products)
		assert.Nil(t, eff.Promotions[0].UnitUplift)
	})
}

func TestPeriods(t *testing.T) {
	ds := promoFixture()
	periods := Periods(ds.Window, ds.Promotions, ds.Products, ds.Headers, ds.Lines)

	require.Len(t, periods, 9)
	pre, during, post := periods[0], periods[1], periods[2]

	assert.Equal(t, PeriodPre, pre.Period)
	assert.Equal(t, 2, pre.Days)
	assert.Equal(t, int64(2), pre.Units)
	assert.Equal(t, "1.0000", pre.DailyUnits.StringFixed(4))

	assert.Equal(t, PeriodDuring, during.Period)
	assert.Equal(t, 3, during.Days)
	assert.Equal(t, int64(7), during.Units)
	assert.Equal(t, "64.00", during.Revenue.StringFixed(2))
	assert.Equal(t, "2.3333", during.DailyUnits.StringFixed(4))
	assert.Equal(t, "21.3333", during.DailyRevenue.StringFixed(4))

	assert.Equal(t, PeriodPost, post.Period)
	assert.Equal(t, 5, post.Days)
	assert.Equal(t, int64(5), post.Units)

	// PR2 spans the whole window.
	assert.Equal(t, 0, periods[3].Days)
	assert.Equal(t, 10, periods[4].Days)
	assert.True(t, periods[3].DailyUnits.IsZero())
}

func TestFunnel(t *testing.T) {
	ds := promoFixture()
	stages := Funnel(ds.Promotions, ds.Headers, ds.Lines)

	require.Len(t, stages, 3)
	assert.Equal(t, 3, stages[0].Eligible)
	assert.Equal(t, 2, stages[0].Reacted)
	assert.Equal(t, 2, stages[0].Purchased)
	assert.Equal(t, "66.67", stages[0].PctReacted.StringFixed(2))

	assert.Equal(t, 3, stages[1].Eligible)
	assert.Equal(t, 1, stages[1].Reacted)

	assert.Equal(t, 2, stages[2].Eligible)
	assert.Equal(t, 0, stages[2].Reacted)
	assert.Equal(t, "0.00", stages[2].PctReacted.StringFixed(2))
}

func TestTopProducts(t *testing.T) {
	ds := promoFixture()

	top := TopProducts(ds.Products, ds.Lines, 5)
	require.Len(t, top, 2)
	assert.Equal(t, "P1", top[0].ProductID)
	assert.Equal(t, "134.00", top[0].Revenue.StringFixed(2))
	assert.Equal(t, int64(14), top[0].Units)
	assert.Equal(t, "Product P1", top[0].Name)

	assert.Len(t, TopProducts(ds.Products, ds.Lines, 1), 1)
}
