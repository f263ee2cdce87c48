package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/splitscore/pkg/models"
)

func TestNewRunRecord(t *testing.T) {
	a := NewRunRecord(models.RunSplitScore, "gain-ratio", 0.25, true, []byte(`{"matrix":[[1]]}`))
	b := NewRunRecord(models.RunSplitScore, "gain-ratio", 0.25, true, []byte(`{"matrix":[[1]]}`))

	assert.Len(t, a.AuditHash, 64)
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.NotEqual(t, a.AuditHash, b.AuditHash, "hash binds the run ID")
	require.NotNil(t, a.Score)
	assert.Equal(t, 0.25, *a.Score)
	assert.True(t, a.Defined)
}

func TestNewRunRecordUndefined(t *testing.T) {
	r := NewRunRecord(models.RunThreshold, "mutual-info", 0, false, nil)
	assert.Nil(t, r.Score)
	assert.False(t, r.Defined)
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, 50},
		{3, 20, 3, 20},
		{-1, 1000, 1, 50},
	}
	for _, tt := range tests {
		p, l := normalizePage(tt.page, tt.limit)
		assert.Equal(t, tt.wantPage, p)
		assert.Equal(t, tt.wantLimit, l)
	}
}

// Round-trips against a live database when SCORER_TEST_DATABASE_URL is set.
func TestPostgresStoreRoundTrip(t *testing.T) {
	url := os.Getenv("SCORER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SCORER_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := Connect(ctx, url)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.InitSchema(ctx))

	run := NewRunRecord(models.RunPredict, "", 2, true, []byte("payload"))
	require.NoError(t, store.SaveRun(ctx, run))

	runs, total, err := store.ListRuns(ctx, 1, 500)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 1)
	found := false
	for _, r := range runs {
		if r.RunID == run.RunID {
			found = true
			assert.Equal(t, run.AuditHash, r.AuditHash)
		}
	}
	assert.True(t, found)

	snapshot := time.Now().UnixNano()
	require.NoError(t, store.SaveShadowResult(ctx, models.ShadowResult{
		ProductionCriterion: "mutual-info",
		ShadowCriterion:     "gain-ratio",
		ProductionPick:      0,
		ShadowPick:          1,
		Diverged:            true,
		SnapshotID:          snapshot,
		CreatedAt:           time.Now(),
	}))
	report, err := store.ShadowDrift(ctx, snapshot)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalRuns)
	assert.Equal(t, 1, report.Divergences)
	assert.Equal(t, 1.0, report.DivergenceRate)
}
