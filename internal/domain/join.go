package domain

import (
	"fmt"
	"log/slog"
)

// ScopePolicy names which code classes participate in a rollup. Filtering
// overseas and abroad rows is a deliberate policy choice made here, never a
// side effect of a failed join.
type ScopePolicy string

const (
	// ScopeMainland keeps mainland departments only ("01".."95", "2A", "2B").
	// This is the policy used for the standard metropolitan-France map.
	ScopeMainland ScopePolicy = "mainland"
	// ScopeAll keeps every class; overseas and abroad rows still need a
	// matching department to contribute.
	ScopeAll ScopePolicy = "all"
)

// Allows reports whether the policy admits a code class.
func (p ScopePolicy) Allows(class CodeClass) bool {
	if p == ScopeAll {
		return true
	}
	return class == ClassMainland
}

// Valid reports whether p is a known policy.
func (p ScopePolicy) Valid() bool {
	return p == ScopeMainland || p == ScopeAll
}

// BallotJoinStats accounts for every ballot row that did not make it into
// the join. Exclusions are expected at national-data scale and are surfaced
// as counts, not errors.
type BallotJoinStats struct {
	Joined     int
	OutOfScope map[CodeClass]int
	Orphans    int
	Malformed  int
}

// Excluded returns the total number of excluded rows.
func (s BallotJoinStats) Excluded() int {
	n := s.Orphans + s.Malformed
	for _, c := range s.OutOfScope {
		n += c
	}
	return n
}

// JoinDepartmentsToRegions resolves every department to exactly one region
// by normalized region code. The reference tables are assumed complete and
// consistent, so any duplicate code, malformed code, or unresolved
// department fails the whole join.
func JoinDepartmentsToRegions(departments []Department, regions []Region) ([]JoinedDepartment, error) {
	regionsByCode := make(map[string]Region, len(regions))
	for _, r := range regions {
		code, err := normalizeRegionCode(r.Code)
		if err != nil {
			return nil, fmt.Errorf("region %q: %w", r.Name, err)
		}
		if _, ok := regionsByCode[code]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRegion, code)
		}
		regionsByCode[code] = r
	}

	joined := make([]JoinedDepartment, 0, len(departments))
	seen := make(map[CanonicalCode]struct{}, len(departments))
	for _, d := range departments {
		code, err := Normalize(d.Code)
		if err != nil {
			return nil, fmt.Errorf("department %q: %w", d.Name, err)
		}
		if _, dup := seen[code]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateDepartment, code)
		}
		seen[code] = struct{}{}

		regionCode, err := normalizeRegionCode(d.RegionCode)
		if err != nil {
			return nil, fmt.Errorf("department %q: %w", d.Name, err)
		}
		region, ok := regionsByCode[regionCode]
		if !ok {
			return nil, &MissingRegionError{DepartmentCode: string(code), RegionCode: regionCode}
		}

		joined = append(joined, JoinedDepartment{
			DepartmentCode: code,
			DepartmentName: d.Name,
			RegionCode:     regionCode,
			RegionName:     region.Name,
		})
	}
	return joined, nil
}

// JoinBallotsToDepartments attaches each ballot record to its
// department/region pair by normalized department code, restricted to the
// given scope. Rows outside scope, rows whose code matches no department,
// and rows with an unparseable code are excluded and counted; each
// exclusion is logged at Debug so data-quality investigations can find the
// exact rows. One ballot record contributes to at most one pair.
func JoinBallotsToDepartments(ballots []BallotRecord, departments []JoinedDepartment, scope ScopePolicy, logger *slog.Logger) ([]JoinedBallot, BallotJoinStats) {
	if logger == nil {
		logger = slog.Default()
	}

	byCode := make(map[CanonicalCode]JoinedDepartment, len(departments))
	for _, d := range departments {
		byCode[d.DepartmentCode] = d
	}

	stats := BallotJoinStats{OutOfScope: make(map[CodeClass]int)}
	joined := make([]JoinedBallot, 0, len(ballots))

	for _, b := range ballots {
		code, err := Normalize(b.DepartmentCode)
		if err != nil {
			stats.Malformed++
			logger.Debug("ballot row excluded: malformed department code",
				"department_code", b.DepartmentCode, "town_code", b.TownCode, "error", err)
			continue
		}

		if class := code.Class(); !scope.Allows(class) {
			stats.OutOfScope[class]++
			logger.Debug("ballot row excluded: outside scope",
				"department_code", string(code), "class", string(class), "scope", string(scope))
			continue
		}

		dep, ok := byCode[code]
		if !ok {
			stats.Orphans++
			logger.Debug("ballot row excluded: no matching department",
				"department_code", string(code), "town_code", b.TownCode)
			continue
		}

		joined = append(joined, JoinedBallot{
			Ballot:         b,
			DepartmentCode: code,
			RegionCode:     dep.RegionCode,
			RegionName:     dep.RegionName,
		})
	}

	stats.Joined = len(joined)
	return joined, stats
}

// normalizeRegionCode canonicalizes a region code. Region codes are plain
// numerics in the INSEE table ("84", "11", "1" for Guadeloupe), so the
// department rules apply minus the class semantics.
func normalizeRegionCode(raw string) (string, error) {
	code, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	return string(code), nil
}
