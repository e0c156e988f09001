package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frozenClock(t *testing.T) time.Time {
	t.Helper()
	at := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(at))
	t.Cleanup(func() { SetClock(nil) })
	return at
}

func jb(regionCode, regionName string, registered, abstentions, nullVotes, a, b int64) JoinedBallot {
	return JoinedBallot{
		Ballot: BallotRecord{
			Registered:  registered,
			Abstentions: abstentions,
			NullVotes:   nullVotes,
			ChoiceA:     a,
			ChoiceB:     b,
		},
		RegionCode: regionCode,
		RegionName: regionName,
	}
}

func TestAggregateByRegion(t *testing.T) {
	at := frozenClock(t)

	ballots := []JoinedBallot{
		jb("84", "Auvergne-Rhône-Alpes", 100, 10, 2, 50, 38),
		jb("84", "Auvergne-Rhône-Alpes", 40, 5, 1, 14, 20),
		jb("93", "Provence-Alpes-Côte d'Azur", 60, 6, 0, 30, 24),
	}

	results := AggregateByRegion(ballots, AggregateOptions{}, nil)
	require.Len(t, results, 2)

	// Sorted by region code.
	ara := results[0]
	assert.Equal(t, "84", ara.Code)
	assert.Equal(t, "Auvergne-Rhône-Alpes", ara.Name)
	assert.Equal(t, int64(140), ara.Registered)
	assert.Equal(t, int64(15), ara.Abstentions)
	assert.Equal(t, int64(3), ara.NullVotes)
	assert.Equal(t, int64(64), ara.ChoiceA)
	assert.Equal(t, int64(58), ara.ChoiceB)
	require.NotNil(t, ara.Ratio)
	assert.InDelta(t, 64.0/122.0, *ara.Ratio, 1e-12)
	assert.Equal(t, at, ara.ComputedAt)

	paca := results[1]
	assert.Equal(t, "93", paca.Code)
	require.NotNil(t, paca.Ratio)
	assert.InDelta(t, 30.0/54.0, *paca.Ratio, 1e-12)
}

func TestAggregateByRegion_EmptyRegionsOmitted(t *testing.T) {
	frozenClock(t)

	results := AggregateByRegion(nil, AggregateOptions{}, nil)
	assert.Empty(t, results)
}

func TestAggregateByRegion_ZeroFill(t *testing.T) {
	frozenClock(t)

	ballots := []JoinedBallot{jb("84", "Auvergne-Rhône-Alpes", 100, 10, 2, 50, 38)}
	opts := AggregateOptions{
		IncludeEmptyRegions: true,
		AllRegions: []Region{
			{Code: "84", Name: "Auvergne-Rhône-Alpes"},
			{Code: "93", Name: "Provence-Alpes-Côte d'Azur"},
		},
	}

	results := AggregateByRegion(ballots, opts, nil)
	require.Len(t, results, 2)

	assert.Equal(t, "93", results[1].Code)
	assert.Equal(t, int64(0), results[1].Registered)
	assert.Nil(t, results[1].Ratio, "zero-filled region has no expressed votes")
}

func TestAggregateByRegion_NameMismatchKeepsFirst(t *testing.T) {
	frozenClock(t)

	ballots := []JoinedBallot{
		jb("84", "Auvergne-Rhône-Alpes", 10, 0, 0, 5, 5),
		jb("84", "Auvergne Rhone Alpes", 10, 0, 0, 5, 5),
	}

	results := AggregateByRegion(ballots, AggregateOptions{}, nil)
	require.Len(t, results, 1)
	assert.Equal(t, "Auvergne-Rhône-Alpes", results[0].Name)
	assert.Equal(t, int64(20), results[0].Registered)
}

func TestRatio(t *testing.T) {
	t.Run("bounds", func(t *testing.T) {
		tests := []struct {
			a, b     int64
			expected float64
		}{
			{50, 38, 50.0 / 88.0},
			{0, 10, 0},
			{10, 0, 1},
			{1, 1, 0.5},
		}
		for _, tt := range tests {
			r := Ratio(tt.a, tt.b, RatioNilWhenUndefined)
			require.NotNil(t, r)
			assert.InDelta(t, tt.expected, *r, 1e-12)
			assert.GreaterOrEqual(t, *r, 0.0)
			assert.LessOrEqual(t, *r, 1.0)
		}
	})

	t.Run("undefined is nil by default", func(t *testing.T) {
		assert.Nil(t, Ratio(0, 0, RatioNilWhenUndefined))
	})

	t.Run("undefined zero-fill policy", func(t *testing.T) {
		r := Ratio(0, 0, RatioZeroWhenUndefined)
		require.NotNil(t, r)
		assert.Equal(t, 0.0, *r)
	})
}

func TestAggregateByRegion_OnlyZeroVoteBallots(t *testing.T) {
	frozenClock(t)

	ballots := []JoinedBallot{jb("84", "Auvergne-Rhône-Alpes", 100, 95, 5, 0, 0)}

	results := AggregateByRegion(ballots, AggregateOptions{}, nil)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Ratio)
	assert.Equal(t, int64(100), results[0].Registered)
}

func TestAggregateByRegion_Deterministic(t *testing.T) {
	frozenClock(t)

	ballots := []JoinedBallot{
		jb("93", "Provence-Alpes-Côte d'Azur", 60, 6, 0, 30, 24),
		jb("84", "Auvergne-Rhône-Alpes", 100, 10, 2, 50, 38),
		jb("11", "Île-de-France", 80, 8, 1, 44, 27),
	}

	first := AggregateByRegion(ballots, AggregateOptions{}, nil)
	second := AggregateByRegion(ballots, AggregateOptions{}, nil)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"11", "84", "93"}, []string{first[0].Code, first[1].Code, first[2].Code})
}
