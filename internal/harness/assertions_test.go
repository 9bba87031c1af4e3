package harness

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/retailkit/internal/config"
	"github.com/roach88/retailkit/internal/pipeline"
	"github.com/roach88/retailkit/internal/warehouse"
)

func decodeSummary(t *testing.T, src string) any {
	t.Helper()
	var doc any
	dec := json.NewDecoder(bytes.NewReader([]byte(src)))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&doc))
	return doc
}

const sampleSummary = `{
	"seed": "42",
	"window": {"start": "2025-01-04", "end": "2025-01-31", "days": 28},
	"recipes": ["quality", "loyalty"],
	"loyalty": {"points_awarded": 1250, "ratio": "0.25", "changes": [
		{"customer_id": "C00001", "points": 51},
		{"customer_id": "C00002", "points": 3}
	]},
	"inventory": null
}`

func TestLookup(t *testing.T) {
	doc := decodeSummary(t, sampleSummary)

	v, err := lookup(doc, "window.end")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-31", v)

	v, err = lookup(doc, "loyalty.changes.1.customer_id")
	require.NoError(t, err)
	assert.Equal(t, "C00002", v)

	_, err = lookup(doc, "loyalty.changes.2")
	assert.ErrorContains(t, err, "out of range")

	_, err = lookup(doc, "window.middle")
	assert.ErrorContains(t, err, `key "middle" not found`)

	_, err = lookup(doc, "seed.value")
	assert.ErrorContains(t, err, "cannot descend")
}

func TestSummaryValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"string", "42", "42", true},
		{"string mismatch", "42", "43", false},
		{"int to number", 28, json.Number("28"), true},
		{"float to number", 28.0, json.Number("28"), true},
		{"float to decimal number", 0.5, json.Number("0.50"), true},
		{"string to number", "28", json.Number("28"), false},
		{"int to string", 42, "42", false},
		{"bool", true, true, true},
		{"nil", nil, nil, true},
		{"nil vs value", nil, "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summaryValuesEqual(tt.expected, tt.actual))
		})
	}
}

func TestEvaluateAssertions_Summary(t *testing.T) {
	actx := &AssertionContext{
		Ctx:     context.Background(),
		Summary: decodeSummary(t, sampleSummary),
		Digest:  "ab",
	}

	pass := []Assertion{
		{Type: AssertSummaryValue, Path: "seed", Equals: "42"},
		{Type: AssertSummaryValue, Path: "window.days", Equals: 28},
		{Type: AssertSummaryValue, Path: "loyalty.ratio", Equals: "0.25"},
		{Type: AssertSummaryValue, Path: "inventory", Equals: nil},
		{Type: AssertSummaryCount, Path: "recipes", Count: 2},
		{Type: AssertSummaryContains, Path: "loyalty.changes", Expect: map[string]any{"customer_id": "C00002", "points": 3}},
		{Type: AssertDigest, Equals: "ab"},
	}
	assert.Empty(t, EvaluateAssertions(pass, actx))

	fail := []Assertion{
		{Type: AssertSummaryValue, Path: "seed", Equals: 42},
		{Type: AssertSummaryCount, Path: "recipes", Count: 3},
		{Type: AssertSummaryCount, Path: "window", Count: 3},
		{Type: AssertSummaryContains, Path: "loyalty.changes", Expect: map[string]any{"customer_id": "C00002", "points": 51}},
		{Type: AssertDigest, Equals: "cd"},
		{Type: AssertFinalState, Table: "stores", Expect: map[string]any{"store_id": "S001"}},
		{Type: "trace_order"},
	}
	errs := EvaluateAssertions(fail, actx)
	require.Len(t, errs, len(fail))
	assert.Contains(t, errs[0], "summary_value assertion failed")
	assert.Contains(t, errs[1], "3 elements at recipes")
	assert.Contains(t, errs[2], "array at window")
	assert.Contains(t, errs[3], "no match among 2 elements")
	assert.Contains(t, errs[4], "expected cd, got ab")
	assert.Contains(t, errs[5], "final_state requires a warehouse")
	assert.Contains(t, errs[6], `unknown assertion type "trace_order"`)
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{Type: AssertDigest, Expected: "x", Actual: "y"}
	assert.Equal(t, "digest assertion failed: expected x, got y", err.Error())
}

func TestBuildWhereClause_Empty(t *testing.T) {
	sql, args, err := buildWhereClause(nil)
	require.NoError(t, err)
	assert.Empty(t, sql)
	assert.Nil(t, args)
}

func TestBuildWhereClause_MultipleKeys_SortedDeterministic(t *testing.T) {
	sql, args, err := buildWhereClause(map[string]any{"store_id": "S001", "product_id": "P0001", "units": 3})
	require.NoError(t, err)
	assert.Equal(t, "product_id = ? AND store_id = ? AND units = ?", sql)
	assert.Equal(t, []any{"P0001", "S001", 3}, args)
}

func TestBuildWhereClause_InvalidColumnName(t *testing.T) {
	_, _, err := buildWhereClause(map[string]any{"id; DROP TABLE runs": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid column name")
}

func TestToSQLValue_Types(t *testing.T) {
	assert.Equal(t, "a", toSQLValue("a"))
	assert.Equal(t, 3, toSQLValue(3))
	assert.Equal(t, true, toSQLValue(true))
	assert.Equal(t, "12.5", toSQLValue(12.5))
	assert.Equal(t, "[1 2]", toSQLValue([]int{1, 2}))
}

func TestFormatFields(t *testing.T) {
	assert.Equal(t, "(no conditions)", formatFields(nil))
	assert.Equal(t, "a=1 AND b=x", formatFields(map[string]any{"b": "x", "a": 1}))
}

func TestStateValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"strings", "Region2", "Region2", true},
		{"bytes", "Region2", []byte("Region2"), true},
		{"decimal text", "12.50", "12.5", true},
		{"string mismatch", "Region2", "Region1", false},
		{"int", 42, int64(42), true},
		{"int to text", 42, "42", true},
		{"float to text", 0.1, "0.10", true},
		{"int mismatch", 42, int64(41), false},
		{"bool from int", true, int64(1), true},
		{"bool false", false, int64(0), true},
		{"nil", nil, nil, true},
		{"nil vs value", nil, int64(0), false},
		{"string vs int", "42", int64(42), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stateValuesEqual(tt.expected, tt.actual))
		})
	}
}

var (
	storeOnce  sync.Once
	storeRun   *warehouse.Store
	storeRunID string
	storeErr   error
)

// defaultWarehouse holds one default run shared by the final_state tests.
func defaultWarehouse(t *testing.T) (*warehouse.Store, string) {
	t.Helper()
	storeOnce.Do(func() {
		cfg, err := config.Default()
		if err != nil {
			storeErr = err
			return
		}
		res, err := pipeline.Run(context.Background(), cfg, pipeline.Options{})
		if err != nil {
			storeErr = err
			return
		}
		storeRun, storeErr = warehouse.Open(":memory:")
		if storeErr != nil {
			return
		}
		storeRunID, storeErr = storeRun.WriteRun(context.Background(), res)
	})
	require.NoError(t, storeErr)
	return storeRun, storeRunID
}

func TestAssertFinalState_RowFound_Pass(t *testing.T) {
	st, runID := defaultWarehouse(t)

	err := assertFinalState(context.Background(), st, runID, Assertion{
		Type:   AssertFinalState,
		Table:  "stores",
		Where:  map[string]any{"store_id": "S001"},
		Expect: map[string]any{"store_region": "Region2"},
	})
	assert.NoError(t, err)
}

func TestAssertFinalState_RunsTable(t *testing.T) {
	st, runID := defaultWarehouse(t)

	err := assertFinalState(context.Background(), st, runID, Assertion{
		Type:   AssertFinalState,
		Table:  "runs",
		Expect: map[string]any{"seed": 42, "days": 28},
	})
	assert.NoError(t, err)
}

func TestAssertFinalState_RowNotFound_Fail(t *testing.T) {
	st, runID := defaultWarehouse(t)

	err := assertFinalState(context.Background(), st, runID, Assertion{
		Table:  "stores",
		Where:  map[string]any{"store_id": "S999"},
		Expect: map[string]any{"store_region": "Region2"},
	})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "row not found", ae.Actual)
}

func TestAssertFinalState_MultipleRows_Fail(t *testing.T) {
	st, runID := defaultWarehouse(t)

	err := assertFinalState(context.Background(), st, runID, Assertion{
		Table:  "stores",
		Expect: map[string]any{"store_region": "Region2"},
	})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Actual, "multiple rows matched")
}

func TestAssertFinalState_ValueMismatch_Fail(t *testing.T) {
	st, runID := defaultWarehouse(t)

	err := assertFinalState(context.Background(), st, runID, Assertion{
		Table:  "stores",
		Where:  map[string]any{"store_id": "S001"},
		Expect: map[string]any{"store_region": "Region9"},
	})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Expected, `field "store_region" = Region9`)
}

func TestAssertFinalState_MissingColumn_Fail(t *testing.T) {
	st, runID := defaultWarehouse(t)

	err := assertFinalState(context.Background(), st, runID, Assertion{
		Table:  "stores",
		Where:  map[string]any{"store_id": "S001"},
		Expect: map[string]any{"store_country": "X"},
	})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Actual, "not present in result columns")
}

func TestAssertFinalState_TableNotFound_Fail(t *testing.T) {
	st, runID := defaultWarehouse(t)

	err := assertFinalState(context.Background(), st, runID, Assertion{
		Table:  "forecasts",
		Expect: map[string]any{"a": 1},
	})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Actual, "query error")
}

func TestAssertFinalState_InvalidTableName(t *testing.T) {
	st, runID := defaultWarehouse(t)

	err := assertFinalState(context.Background(), st, runID, Assertion{
		Table:  "stores; DROP TABLE runs",
		Expect: map[string]any{"a": 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")
}
