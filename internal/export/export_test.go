package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/yorulabs/leadgen-cli/internal/model"
	"github.com/yorulabs/leadgen-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// seedRun creates a run with n leads; every second lead gets a score of
// 10*(n-i) so fetch order and score order differ.
func seedRun(t *testing.T, st store.Store, n int) *model.Run {
	t.Helper()
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "saas-cto", []byte(`{"name":"saas-cto"}`), "csv")
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		up, err := st.UpsertLead(ctx, &model.Lead{
			Email:    fmt.Sprintf("lead%d@acme.com", i),
			FullName: fmt.Sprintf("Lead %d", i),
			Title:    "CTO",
			Source:   "csv",
			RunID:    run.ID,
		})
		require.NoError(t, err)

		if i%2 == 0 {
			require.NoError(t, st.SaveScore(ctx, &model.Score{
				LeadID:   up.LeadID,
				RunID:    run.ID,
				FitScore: 10 * (n - i),
				Reasons:  []string{"title matches", "verified", "industry", "extra"},
				ICPName:  "saas-cto",
			}))
		}
	}
	return run
}

func TestExportCSV_OrderAndShape(t *testing.T) {
	st := newTestStore(t)
	run := seedRun(t, st, 5) // scores: lead0=50, lead2=30, lead4=10; 1 and 3 unscored
	dir := t.TempDir()

	art, err := New(st, dir).ExportCSV(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, 5, art.Rows)

	f, err := os.Open(art.Path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6) // header + 5

	assert.Equal(t, csvHeader, records[0])
	assert.Len(t, records[0], 19)

	// Fit desc; unscored leads sink to the bottom in fetch order.
	var emails, fits []string
	for _, rec := range records[1:] {
		emails = append(emails, rec[0])
		fits = append(fits, rec[15])
	}
	assert.Equal(t, []string{"lead0@acme.com", "lead2@acme.com", "lead4@acme.com", "lead1@acme.com", "lead3@acme.com"}, emails)
	assert.Equal(t, []string{"50", "30", "10", "0", "0"}, fits)

	// Reasons joined, verified flag serialized.
	assert.Equal(t, "title matches; verified; industry; extra", records[1][16])
	assert.Equal(t, "false", records[1][17])

	got, err := st.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.LeadsExported)
}

func TestExportCSV_FilenameOverride(t *testing.T) {
	st := newTestStore(t)
	run := seedRun(t, st, 2)
	dir := t.TempDir()

	art, err := New(st, dir, WithCSVFilename("q3-campaign.csv")).ExportCSV(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "q3-campaign.csv"), art.Path)

	_, err = os.Stat(art.Path)
	require.NoError(t, err)
}

func TestExportJSON_Summary(t *testing.T) {
	st := newTestStore(t)
	run := seedRun(t, st, 12)
	dir := t.TempDir()

	art, err := New(st, dir).ExportJSON(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run_"+run.ID+".json"), art.Path)

	data, err := os.ReadFile(art.Path)
	require.NoError(t, err)
	var summary Summary
	require.NoError(t, json.Unmarshal(data, &summary))

	assert.Equal(t, run.ID, summary.RunID)
	assert.Equal(t, "saas-cto", summary.ICPName)
	assert.Equal(t, 12, summary.TotalLeads)
	assert.Len(t, summary.TopLeads, 10)
	// Best lead first, reasons capped at three.
	assert.Equal(t, "lead0@acme.com", summary.TopLeads[0].Email)
	assert.Equal(t, 120, summary.TopLeads[0].FitScore)
	assert.Len(t, summary.TopLeads[0].Reasons, 3)
	// Band arithmetic: scored 120,100,80 high; 60,40 medium; 20 + 6 unscored low.
	assert.Equal(t, 3, summary.Distribution.High)
	assert.Equal(t, 2, summary.Distribution.Medium)
	assert.Equal(t, 7, summary.Distribution.Low)
	assert.JSONEq(t, `{"name":"saas-cto"}`, string(summary.ICPConfig))
}

func TestExportXLSX(t *testing.T) {
	st := newTestStore(t)
	run := seedRun(t, st, 3)
	dir := t.TempDir()

	art, err := New(st, dir).ExportXLSX(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, 3, art.Rows)

	file, err := xlsx.OpenFile(art.Path)
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)
	sheet := file.Sheets[0]
	require.Len(t, sheet.Rows, 4) // header + 3
	assert.Equal(t, "email", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "lead0@acme.com", sheet.Rows[1].Cells[0].String())
}

func TestExport_EmptyRun(t *testing.T) {
	st := newTestStore(t)
	run, err := st.CreateRun(context.Background(), "saas-cto", nil, "csv")
	require.NoError(t, err)

	art, err := New(st, t.TempDir()).ExportCSV(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, 0, art.Rows)
}
