package domain

import (
	"log/slog"
	"sort"
)

// RatioPolicy selects what an aggregated result carries when no votes were
// expressed. The nil sentinel is the default; zero-fill exists for
// consumers that cannot represent null.
type RatioPolicy string

const (
	// RatioNilWhenUndefined leaves Ratio nil when ChoiceA+ChoiceB == 0.
	RatioNilWhenUndefined RatioPolicy = "nil"
	// RatioZeroWhenUndefined writes 0 instead of the nil sentinel.
	RatioZeroWhenUndefined RatioPolicy = "zero"
)

// AggregateOptions tunes the edge-case policies of the rollup. The zero
// value matches the default behavior: regions without ballots are omitted
// and the undefined ratio stays nil.
type AggregateOptions struct {
	// IncludeEmptyRegions emits a zero-total result for every region in
	// allRegions that received no ballots, so a downstream map can color
	// every polygon. Requires AllRegions to be set.
	IncludeEmptyRegions bool
	// AllRegions is the full region reference table, consulted only when
	// IncludeEmptyRegions is set.
	AllRegions []Region
	// Ratio selects the undefined-ratio encoding.
	Ratio RatioPolicy
}

// AggregateByRegion groups joined ballots by region code and sums the five
// count fields as int64. A region's name is carried through from the first
// row seen; if later rows disagree the discrepancy is logged and the
// first-seen name wins. Regions with no contributing rows are omitted
// unless opts.IncludeEmptyRegions says otherwise. Results come back sorted
// by region code so repeat runs are bit-identical.
func AggregateByRegion(ballots []JoinedBallot, opts AggregateOptions, logger *slog.Logger) []RegionResult {
	if logger == nil {
		logger = slog.Default()
	}

	byRegion := make(map[string]*RegionResult)
	for _, jb := range ballots {
		res, ok := byRegion[jb.RegionCode]
		if !ok {
			res = &RegionResult{Code: jb.RegionCode, Name: jb.RegionName}
			byRegion[jb.RegionCode] = res
		} else if res.Name != jb.RegionName {
			logger.Warn("region name mismatch, keeping first-seen name",
				"region_code", jb.RegionCode, "kept", res.Name, "seen", jb.RegionName)
		}

		res.Registered += jb.Ballot.Registered
		res.Abstentions += jb.Ballot.Abstentions
		res.NullVotes += jb.Ballot.NullVotes
		res.ChoiceA += jb.Ballot.ChoiceA
		res.ChoiceB += jb.Ballot.ChoiceB
	}

	if opts.IncludeEmptyRegions {
		for _, r := range opts.AllRegions {
			code, err := normalizeRegionCode(r.Code)
			if err != nil {
				logger.Warn("skipping zero-fill for malformed region code",
					"region_code", r.Code, "error", err)
				continue
			}
			if _, ok := byRegion[code]; !ok {
				byRegion[code] = &RegionResult{Code: code, Name: r.Name}
			}
		}
	}

	now := clock.Now()
	results := make([]RegionResult, 0, len(byRegion))
	for _, res := range byRegion {
		res.Ratio = Ratio(res.ChoiceA, res.ChoiceB, opts.Ratio)
		res.ComputedAt = now
		results = append(results, *res)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Code < results[j].Code })
	return results
}

// Ratio derives the expressed-vote ratio ChoiceA/(ChoiceA+ChoiceB). When no
// votes were expressed it returns the policy's sentinel instead of dividing
// by zero; the default is nil. A non-nil result is always within [0, 1].
func Ratio(choiceA, choiceB int64, policy RatioPolicy) *float64 {
	expressed := choiceA + choiceB
	if expressed <= 0 {
		if policy == RatioZeroWhenUndefined {
			zero := 0.0
			return &zero
		}
		return nil
	}
	r := float64(choiceA) / float64(expressed)
	return &r
}
