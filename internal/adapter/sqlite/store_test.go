package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchastel/referendum-rollup/internal/domain"
	"github.com/mchastel/referendum-rollup/internal/pipeline"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "rollup.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleReport() pipeline.RunReport {
	return pipeline.RunReport{
		Scope:          domain.ScopeMainland,
		BallotRows:     5,
		Stats:          domain.BallotJoinStats{Joined: 3, Orphans: 1, OutOfScope: map[domain.CodeClass]int{domain.ClassOverseas: 1}},
		RegionsEmitted: 2,
	}
}

func TestSaveRunAndLatestResults(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ratio := 0.5682
	computedAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	results := []domain.RegionResult{
		{Code: "84", Name: "Auvergne-Rhône-Alpes", Registered: 100, Abstentions: 10, NullVotes: 2, ChoiceA: 50, ChoiceB: 38, Ratio: &ratio, ComputedAt: computedAt},
		{Code: "93", Name: "Provence-Alpes-Côte d'Azur", Registered: 80, ChoiceA: 0, ChoiceB: 0, ComputedAt: computedAt},
	}

	runID, err := store.SaveRun(ctx, sampleReport(), results)
	require.NoError(t, err)
	assert.Positive(t, runID)

	loaded, err := store.LatestResults(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "84", loaded[0].Code)
	assert.Equal(t, int64(100), loaded[0].Registered)
	require.NotNil(t, loaded[0].Ratio)
	assert.InDelta(t, ratio, *loaded[0].Ratio, 1e-12)
	assert.Equal(t, computedAt, loaded[0].ComputedAt)

	assert.Equal(t, "93", loaded[1].Code)
	assert.Nil(t, loaded[1].Ratio, "undefined ratio round-trips as NULL")
}

func TestLatestResults_PicksNewestRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := []domain.RegionResult{{Code: "84", Name: "ARA", Registered: 1}}
	second := []domain.RegionResult{{Code: "84", Name: "ARA", Registered: 2}}

	_, err := store.SaveRun(ctx, sampleReport(), first)
	require.NoError(t, err)
	_, err = store.SaveRun(ctx, sampleReport(), second)
	require.NoError(t, err)

	loaded, err := store.LatestResults(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, int64(2), loaded[0].Registered)
}

func TestLatestResults_Empty(t *testing.T) {
	store := openTestStore(t)

	_, err := store.LatestResults(context.Background())
	require.ErrorIs(t, err, ErrNoRuns)
}

func TestResultsForRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	runID, err := store.SaveRun(ctx, sampleReport(), []domain.RegionResult{{Code: "11", Name: "Île-de-France"}})
	require.NoError(t, err)

	loaded, err := store.ResultsForRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Île-de-France", loaded[0].Name)

	loaded, err = store.ResultsForRun(ctx, runID+999)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
