package domain

import "time"

// Region is a top-level administrative division, the aggregation target.
type Region struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Department is an intermediate division; many departments map into one region.
// Code and RegionCode are raw as loaded and normalized during the join.
type Department struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	RegionCode string `json:"region_code"`
}

// BallotRecord is one municipality's referendum tally. DepartmentCode is raw,
// pre-normalization; the remaining fields pass through untouched.
type BallotRecord struct {
	DepartmentCode string `json:"department_code"`
	DepartmentName string `json:"department_name"`
	TownCode       string `json:"town_code"`
	TownName       string `json:"town_name"`
	Registered     int64  `json:"registered"`
	Abstentions    int64  `json:"abstentions"`
	NullVotes      int64  `json:"null_votes"`
	ChoiceA        int64  `json:"choice_a"`
	ChoiceB        int64  `json:"choice_b"`
}

// JoinedDepartment is a department resolved to its region, keyed by
// canonical codes on both sides.
type JoinedDepartment struct {
	DepartmentCode CanonicalCode
	DepartmentName string
	RegionCode     string
	RegionName     string
}

// JoinedBallot is a ballot record attached to its department/region pair.
// One BallotRecord produces at most one JoinedBallot.
type JoinedBallot struct {
	Ballot         BallotRecord
	DepartmentCode CanonicalCode
	RegionCode     string
	RegionName     string
}

// RegionResult is the aggregated tally for one region. Ratio is
// ChoiceA/(ChoiceA+ChoiceB), nil when no votes were expressed; it
// serializes as JSON null so downstream consumers see an explicit gap
// rather than a zero.
type RegionResult struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Registered  int64     `json:"registered"`
	Abstentions int64     `json:"abstentions"`
	NullVotes   int64     `json:"null_votes"`
	ChoiceA     int64     `json:"choice_a"`
	ChoiceB     int64     `json:"choice_b"`
	Ratio       *float64  `json:"ratio"`
	ComputedAt  time.Time `json:"computed_at"`
}

// Expressed returns the number of expressed ballots (abstentions and null
// votes excluded).
func (r RegionResult) Expressed() int64 {
	return r.ChoiceA + r.ChoiceB
}
