package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/retailkit/internal/warehouse"
)

// exportedRun exports the default run into a fresh warehouse and returns
// the database path and run ID.
func exportedRun(t *testing.T) (string, string) {
	t.Helper()
	db := filepath.Join(t.TempDir(), "retail.db")
	out, err := run(t, "export", "--db", db, "--format", "json")
	require.NoError(t, err)

	var res ExportResult
	require.NoError(t, json.Unmarshal(decodeResponse(t, out).Data, &res))
	require.NotEmpty(t, res.RunID)
	return db, res.RunID
}

func TestInspect_ListRuns(t *testing.T) {
	db, runID := exportedRun(t)

	out, err := run(t, "inspect", "--db", db, "--format", "json")
	require.NoError(t, err)

	var runs []InspectRun
	require.NoError(t, json.Unmarshal(decodeResponse(t, out).Data, &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, "42", runs[0].Seed)
	assert.Equal(t, 28, runs[0].Days)

	text, err := run(t, "inspect", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, text, "== runs ==")
	assert.Contains(t, text, runID)
}

func TestInspect_Run(t *testing.T) {
	db, runID := exportedRun(t)

	out, err := run(t, "inspect", runID, "--db", db, "--format", "json")
	require.NoError(t, err)

	var res InspectResult
	require.NoError(t, json.Unmarshal(decodeResponse(t, out).Data, &res))
	assert.Equal(t, runID, res.Run.ID)
	require.Len(t, res.Tables, len(warehouse.Tables))
	assert.Equal(t, InspectCount{Table: "stores", Rows: 6}, res.Tables[0])
	assert.NotNil(t, res.Quarantine)
	assert.Nil(t, res.Customer)

	text, err := run(t, "inspect", runID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, text, "== warehouse_tables ==")
	assert.Contains(t, text, "inventory_snapshots")
}

func TestInspect_CustomerBalance(t *testing.T) {
	db, runID := exportedRun(t)

	st, err := warehouse.Open(db)
	require.NoError(t, err)
	rows, err := st.Query(context.Background(), `
		SELECT customer_id, balance FROM loyalty_accruals
		WHERE run_id = ? ORDER BY rowid DESC LIMIT 1`, runID)
	require.NoError(t, err)
	require.True(t, rows.Next())
	var (
		customerID string
		balance    int64
	)
	require.NoError(t, rows.Scan(&customerID, &balance))
	require.NoError(t, rows.Close())
	require.NoError(t, st.Close())

	out, err := run(t, "inspect", runID, "--db", db, "--customer", customerID, "--format", "json")
	require.NoError(t, err)
	var res InspectResult
	require.NoError(t, json.Unmarshal(decodeResponse(t, out).Data, &res))
	require.NotNil(t, res.Customer)
	assert.Equal(t, InspectBalance{CustomerID: customerID, Balance: balance, Posted: true}, *res.Customer)

	out, err = run(t, "inspect", runID, "--db", db, "--customer", "C99999", "--format", "json")
	require.NoError(t, err)
	res = InspectResult{}
	require.NoError(t, json.Unmarshal(decodeResponse(t, out).Data, &res))
	require.NotNil(t, res.Customer)
	assert.False(t, res.Customer.Posted)
	assert.Zero(t, res.Customer.Balance)
}

func TestInspect_Summary(t *testing.T) {
	db, runID := exportedRun(t)

	digest, err := run(t, "digest")
	require.NoError(t, err)
	assert.Equal(t, warehouse.RunID(strings.TrimSpace(digest)), runID)

	out, err := run(t, "inspect", runID, "--db", db, "--summary")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
	assert.Contains(t, out, `"seed":"42"`)
}

func TestInspect_Delete(t *testing.T) {
	db, runID := exportedRun(t)

	out, err := run(t, "inspect", runID, "--db", db, "--delete")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted run "+runID)

	out, err = run(t, "inspect", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs stored.")
}

func TestInspect_Errors(t *testing.T) {
	db, _ := exportedRun(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing warehouse", []string{"inspect", "--db", filepath.Join(t.TempDir(), "absent.db")}},
		{"unknown run", []string{"inspect", "no-such-run", "--db", db}},
		{"flag without run", []string{"inspect", "--db", db, "--summary"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}

	out, err := run(t, "inspect", "no-such-run", "--db", db, "--format", "json")
	require.Error(t, err)
	resp := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}
