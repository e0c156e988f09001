// Package pipeline orchestrates the normalize-join-aggregate run and keeps
// the result of the latest run for the serving layer.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mchastel/referendum-rollup/internal/domain"
	"github.com/mchastel/referendum-rollup/internal/observability"
)

// RunReport summarizes one completed run: how many rows joined, what was
// excluded and why, and what came out the other end.
type RunReport struct {
	Scope             domain.ScopePolicy     `json:"scope"`
	BallotRows        int                    `json:"ballot_rows"`
	Stats             domain.BallotJoinStats `json:"stats"`
	RegionsEmitted    int                    `json:"regions_emitted"`
	GeometryUnmatched int                    `json:"geometry_unmatched"`
	Duration          time.Duration          `json:"duration"`
}

// Options tunes run behavior beyond the scope policy.
type Options struct {
	IncludeEmptyRegions bool
	RatioPolicy         domain.RatioPolicy
}

// Pipeline runs the rollup and retains the latest results. Safe for
// concurrent use: a serve-mode HTTP handler reads while a rerun writes.
type Pipeline struct {
	logger  *slog.Logger
	metrics *observability.Metrics
	opts    Options

	mu     sync.RWMutex
	latest []domain.RegionResult
	report RunReport
	hasRun bool
}

// New creates a Pipeline with the given observability and options.
func New(logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	return &Pipeline{logger: logger, metrics: metrics, opts: opts}
}

// ComputeRegionResults executes one full rollup: join departments to
// regions, join ballots to departments under the scope policy, aggregate
// per region, and derive ratios. Reference-table integrity failures abort
// with an error; ballot-table exclusions are counted in the report and the
// run continues.
//
// The transform is pure over its inputs: calling it twice with identical
// tables yields identical results.
func (p *Pipeline) ComputeRegionResults(
	regions []domain.Region,
	departments []domain.Department,
	ballots []domain.BallotRecord,
	scope domain.ScopePolicy,
) ([]domain.RegionResult, RunReport, error) {
	if !scope.Valid() {
		return nil, RunReport{}, errors.New("invalid scope policy: " + string(scope))
	}

	start := time.Now()
	p.logger.Info("rollup started",
		"regions", len(regions), "departments", len(departments),
		"ballot_rows", len(ballots), "scope", string(scope))
	p.metrics.BallotRowsRead.Add(float64(len(ballots)))

	joinedDeps, err := domain.JoinDepartmentsToRegions(departments, regions)
	if err != nil {
		p.logger.Error("department-region join failed", "error", err)
		return nil, RunReport{}, err
	}

	joinedBallots, stats := domain.JoinBallotsToDepartments(ballots, joinedDeps, scope, p.logger)
	p.recordExclusions(stats)

	results := domain.AggregateByRegion(joinedBallots, domain.AggregateOptions{
		IncludeEmptyRegions: p.opts.IncludeEmptyRegions,
		AllRegions:          regions,
		Ratio:               p.opts.RatioPolicy,
	}, p.logger)

	report := RunReport{
		Scope:          scope,
		BallotRows:     len(ballots),
		Stats:          stats,
		RegionsEmitted: len(results),
		Duration:       time.Since(start),
	}

	p.metrics.RegionsEmitted.Set(float64(len(results)))
	p.metrics.RunDuration.Observe(report.Duration.Seconds())
	p.metrics.LastRunTimestamp.SetToCurrentTime()

	p.mu.Lock()
	p.latest = results
	p.report = report
	p.hasRun = true
	p.mu.Unlock()

	p.logger.Info("rollup complete",
		"regions_emitted", len(results),
		"rows_joined", stats.Joined,
		"rows_excluded", stats.Excluded(),
		"orphans", stats.Orphans,
		"malformed", stats.Malformed,
		"duration", report.Duration)

	return results, report, nil
}

// Annotate attaches geometry to the given results and records how many
// regions found no polygon.
func (p *Pipeline) Annotate(results []domain.RegionResult, source domain.GeometrySource) []domain.AnnotatedRegion {
	annotated, unmatched := domain.Annotate(results, source, p.logger)
	p.metrics.GeometryUnmatched.Set(float64(unmatched))

	p.mu.Lock()
	p.report.GeometryUnmatched = unmatched
	p.mu.Unlock()

	return annotated
}

// Latest returns the results and report of the most recent run. The bool
// is false before any run has completed.
func (p *Pipeline) Latest() ([]domain.RegionResult, RunReport, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.hasRun {
		return nil, RunReport{}, false
	}
	results := make([]domain.RegionResult, len(p.latest))
	copy(results, p.latest)
	return results, p.report, true
}

// CheckReadiness returns nil once a run has completed, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.hasRun {
		return errors.New("no rollup run has completed yet")
	}
	return nil
}

func (p *Pipeline) recordExclusions(stats domain.BallotJoinStats) {
	p.metrics.BallotRowsJoined.Add(float64(stats.Joined))
	p.metrics.OrphanRows.Add(float64(stats.Orphans))
	p.metrics.MalformedCodes.Add(float64(stats.Malformed))
	for class, n := range stats.OutOfScope {
		p.metrics.RowsOutOfScope.WithLabelValues(string(class)).Add(float64(n))
	}

	if excluded := stats.Excluded(); excluded > 0 {
		p.logger.Warn("ballot rows excluded",
			"out_of_scope_overseas", stats.OutOfScope[domain.ClassOverseas],
			"out_of_scope_abroad", stats.OutOfScope[domain.ClassAbroad],
			"orphans", stats.Orphans,
			"malformed", stats.Malformed,
			"total", excluded)
	}
}
