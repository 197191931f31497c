package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-labs/docextract/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "dossier.pdf", "anthropic", "claude-sonnet-4-5-20250929")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "dossier.pdf", got.Source)
	assert.Equal(t, "anthropic", got.Provider)
	assert.Equal(t, model.RunStatusRunning, got.Status)
}

func TestSQLite_CompleteRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "dossier.pdf", "anthropic", "claude-sonnet-4-5-20250929")
	require.NoError(t, err)

	stats := model.ProcessingStats{SegmentsTotal: 3, SegmentsSucceeded: 2, SegmentsFailed: 1}
	record := json.RawMessage(`{"product_name": "Gel"}`)
	require.NoError(t, st.CompleteRun(ctx, run.ID, stats, 1234, record))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, stats, got.Stats)
	assert.Equal(t, int64(1234), got.DurationMs)
	assert.JSONEq(t, string(record), string(got.Record))
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "dossier.pdf", "anthropic", "m")
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, run.ID, "every segment failed recovery"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "every segment failed recovery", got.Error)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSQLite_UpdateMissingRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, st.FailRun(ctx, "missing", "x"), ErrRunNotFound)
	assert.ErrorIs(t, st.CompleteRun(ctx, "missing", model.ProcessingStats{}, 0, nil), ErrRunNotFound)
}

func TestSQLite_ListRuns_Filtered(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, "a.pdf", "anthropic", "m")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "b.pdf", "openai", "m")
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, a.ID, "boom"))

	failed, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, a.ID, failed[0].ID)

	bySource, err := st.ListRuns(ctx, RunFilter{Source: "b.pdf"})
	require.NoError(t, err)
	require.Len(t, bySource, 1)
	assert.Equal(t, "b.pdf", bySource[0].Source)

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
