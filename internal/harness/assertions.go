package harness

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/roach88/retailkit/internal/warehouse"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s assertion failed: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// AssertionContext carries what assertions evaluate against.
type AssertionContext struct {
	Ctx context.Context

	// Summary is the decoded canonical summary.
	Summary any

	// Digest is the summary digest.
	Digest string

	// Store holds the run when final_state assertions are present.
	Store *warehouse.Store

	// RunID identifies the run inside Store.
	RunID string
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertSummaryValue:
			err = assertSummaryValue(actx.Summary, assertion)
		case AssertSummaryCount:
			err = assertSummaryCount(actx.Summary, assertion)
		case AssertSummaryContains:
			err = assertSummaryContains(actx.Summary, assertion)
		case AssertDigest:
			err = assertDigest(actx.Digest, assertion)
		case AssertFinalState:
			if actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires a warehouse", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, actx.RunID, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// lookup walks a dotted path through decoded JSON. Numeric segments index
// arrays.
func lookup(doc any, path string) (any, error) {
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, fmt.Errorf("path %q: key %q not found", path, seg)
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("path %q: index %q out of range (len %d)", path, seg, len(node))
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("path %q: cannot descend into %T at %q", path, cur, seg)
		}
	}
	return cur, nil
}

func assertSummaryValue(summary any, assertion Assertion) error {
	actual, err := lookup(summary, assertion.Path)
	if err != nil {
		return &AssertionError{Type: AssertSummaryValue, Expected: fmt.Sprintf("%s = %v", assertion.Path, assertion.Equals), Actual: err.Error()}
	}
	if !summaryValuesEqual(assertion.Equals, actual) {
		return &AssertionError{
			Type:     AssertSummaryValue,
			Expected: fmt.Sprintf("%s = %v (type %T)", assertion.Path, assertion.Equals, assertion.Equals),
			Actual:   fmt.Sprintf("%v (type %T)", actual, actual),
		}
	}
	return nil
}

func assertSummaryCount(summary any, assertion Assertion) error {
	actual, err := lookup(summary, assertion.Path)
	if err != nil {
		return &AssertionError{Type: AssertSummaryCount, Expected: fmt.Sprintf("%d elements at %s", assertion.Count, assertion.Path), Actual: err.Error()}
	}
	arr, ok := actual.([]any)
	if !ok {
		return &AssertionError{Type: AssertSummaryCount, Expected: fmt.Sprintf("array at %s", assertion.Path), Actual: fmt.Sprintf("%T", actual)}
	}
	if len(arr) != assertion.Count {
		return &AssertionError{
			Type:     AssertSummaryCount,
			Expected: fmt.Sprintf("%d elements at %s", assertion.Count, assertion.Path),
			Actual:   fmt.Sprintf("%d elements", len(arr)),
		}
	}
	return nil
}

func assertSummaryContains(summary any, assertion Assertion) error {
	actual, err := lookup(summary, assertion.Path)
	if err != nil {
		return &AssertionError{Type: AssertSummaryContains, Expected: fmt.Sprintf("element matching %s", formatFields(assertion.Expect)), Actual: err.Error()}
	}
	arr, ok := actual.([]any)
	if !ok {
		return &AssertionError{Type: AssertSummaryContains, Expected: fmt.Sprintf("array at %s", assertion.Path), Actual: fmt.Sprintf("%T", actual)}
	}
	for _, elem := range arr {
		obj, ok := elem.(map[string]any)
		if ok && matchFields(obj, assertion.Expect) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertSummaryContains,
		Expected: fmt.Sprintf("element of %s matching %s", assertion.Path, formatFields(assertion.Expect)),
		Actual:   fmt.Sprintf("no match among %d elements", len(arr)),
	}
}

func assertDigest(digest string, assertion Assertion) error {
	want, _ := assertion.Equals.(string)
	if digest != want {
		return &AssertionError{Type: AssertDigest, Expected: want, Actual: digest}
	}
	return nil
}

// matchFields checks that every expected field is present and equal
// (subset semantics).
func matchFields(actual map[string]any, expected map[string]any) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok || !summaryValuesEqual(want, got) {
			return false
		}
	}
	return true
}

// summaryValuesEqual compares a YAML scalar against a value decoded from
// the summary with UseNumber. Numbers compare by decimal value, so 28 and
// 28.0 match json.Number("28").
func summaryValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if num, ok := actual.(json.Number); ok {
		want, ok := yamlNumber(expected)
		if !ok {
			return false
		}
		got, err := decimal.NewFromString(num.String())
		return err == nil && want.Equal(got)
	}

	switch exp := expected.(type) {
	case string:
		s, ok := actual.(string)
		return ok && s == exp
	case bool:
		b, ok := actual.(bool)
		return ok && b == exp
	}

	return reflect.DeepEqual(expected, actual)
}

func yamlNumber(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint64:
		d, err := decimal.NewFromString(strconv.FormatUint(n, 10))
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(n), true
	}
	return decimal.Decimal{}, false
}

// assertFinalState checks exactly one row of a warehouse table for the
// run. The run filter is always applied on top of Where.
func assertFinalState(ctx context.Context, st *warehouse.Store, runID string, assertion Assertion) error {
	// Identifiers can't be parameterized, so validate before interpolating.
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}

	runColumn := "run_id"
	if assertion.Table == "runs" {
		runColumn = "id"
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", assertion.Table, runColumn)
	if whereSQL != "" {
		query += " AND " + whereSQL
	}
	args := append([]any{runID}, whereArgs...)

	rows, err := st.Query(ctx, query, args...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatFields(assertion.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatFields(assertion.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]any, len(columns))
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	for _, key := range sortedKeys(assertion.Expect) {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}
		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}

	return nil
}

// buildWhereClause constructs a parameterized WHERE fragment. Keys are
// sorted for determinism.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a YAML scalar to a SQL-compatible value.
func toSQLValue(v any) any {
	switch val := v.(type) {
	case string, int, int64, bool:
		return val
	case float64:
		// Money columns are stored as decimal text.
		return decimal.NewFromFloat(val).String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatFields creates a human-readable description of field conditions.
func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return "(no conditions)"
	}

	keys := sortedKeys(fields)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stateValuesEqual compares expected and actual values from warehouse
// tables. SQLite hands back int64 for integers, text as string or []byte,
// and stores booleans as 0/1. Decimal text compares by value.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if b, ok := actual.([]byte); ok {
		actual = string(b)
	}

	switch exp := expected.(type) {
	case string:
		s, ok := actual.(string)
		if !ok {
			return false
		}
		if s == exp {
			return true
		}
		want, err1 := decimal.NewFromString(exp)
		got, err2 := decimal.NewFromString(s)
		return err1 == nil && err2 == nil && want.Equal(got)
	case bool:
		switch a := actual.(type) {
		case bool:
			return a == exp
		case int64:
			return exp == (a != 0)
		}
		return false
	}

	if want, ok := yamlNumber(expected); ok {
		switch a := actual.(type) {
		case int64:
			return want.Equal(decimal.NewFromInt(a))
		case float64:
			return want.Equal(decimal.NewFromFloat(a))
		case string:
			got, err := decimal.NewFromString(a)
			return err == nil && want.Equal(got)
		}
		return false
	}

	return reflect.DeepEqual(expected, actual)
}
