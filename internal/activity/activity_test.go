package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/retailkit/internal/loyalty"
	"github.com/roach88/retailkit/internal/segment"
	"github.com/roach88/retailkit/internal/testutil"
)

func TestBuild(t *testing.T) {
	ds := testutil.NewFixture(7).
		Store("S1", "City1", "North").
		Product("P1", "Home", "10.00").
		Customer("C2", 0, nil).
		Customer("C1", 0, nil).
		Customer("C9", 40, testutil.Ago(90)).
		Promotion("PR1", "Home", 0, 6, "0.10").
		Rule(1, "1.0", "0", 0).
		Sale("TX2", "C2", "S1", 1, testutil.Line{Product: "P1", Promo: "PR1", Qty: 1, Amount: "9.00"}).
		Sale("TX1", "C1", "S1", 1, testutil.Line{Product: "P1", Qty: 1, Amount: "0.50"}).
		Dataset()

	accruals := loyalty.NewLedger(ds.LoyaltyRules, ds.Customers, nil).Apply(ds.Headers)
	profiles := []segment.Profile{
		{CustomerID: "C1", Segment: segment.Core},
		{CustomerID: "C9", Segment: segment.AtRisk},
	}

	log := Build(ds.Headers, ds.Lines, accruals, profiles, ds.Window.RefDate())

	kinds := make([]string, 0, len(log.Events))
	for _, e := range log.Events {
		kinds = append(kinds, e.CustomerID+":"+e.Kind)
	}
	assert.Equal(t, []string{
		"C1:transaction",
		"C2:transaction",
		"C2:promotion_purchase",
		"C2:points_earned",
		"C9:inactivity_threshold",
	}, kinds)

	assert.Equal(t, "PR1", log.Events[2].PromotionID)
	assert.Equal(t, int64(9), log.Events[3].Points)
	assert.Equal(t, testutil.Day(6), log.Events[4].Date)

	assert.Equal(t, []Count{
		{Kind: KindTransaction, Events: 2},
		{Kind: KindPromotionPurchase, Events: 1},
		{Kind: KindPointsEarned, Events: 1},
		{Kind: KindInactivityThreshold, Events: 1},
	}, log.Counts)

	c2 := log.ForCustomer("C2")
	require.Len(t, c2, 3)
	assert.Equal(t, "TX2", c2[0].Ref)
}

func TestBuildEmpty(t *testing.T) {
	log := Build(nil, nil, nil, nil, testutil.Day(0))
	assert.Empty(t, log.Events)
	require.Len(t, log.Counts, len(Kinds))
	for _, c := range log.Counts {
		assert.Zero(t, c.Events)
	}
}
