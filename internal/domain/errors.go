package domain

import (
	"errors"
	"fmt"
)

// Reference-table integrity errors. These abort a run: the region and
// department tables are small and fully known, so a bad row there is a data
// bug, not noise to filter.
var (
	// ErrMissingRegion indicates a department references a region code with
	// no matching region.
	ErrMissingRegion = errors.New("missing region")

	// ErrDuplicateDepartment indicates two departments share a canonical code.
	ErrDuplicateDepartment = errors.New("duplicate department code")

	// ErrDuplicateRegion indicates two regions share a code.
	ErrDuplicateRegion = errors.New("duplicate region code")
)

// MalformedCodeError reports a department code that fits none of the three
// INSEE classes. In the ballot table the row is excluded and counted; in a
// reference table the error is fatal.
type MalformedCodeError struct {
	Raw    string
	Reason string
}

func (e *MalformedCodeError) Error() string {
	return fmt.Sprintf("malformed department code %q: %s", e.Raw, e.Reason)
}

// MissingRegionError reports a department whose region code resolves to no
// region. Wraps ErrMissingRegion for errors.Is checks.
type MissingRegionError struct {
	DepartmentCode string
	RegionCode     string
}

func (e *MissingRegionError) Error() string {
	return fmt.Sprintf("department %q references region %q which does not exist",
		e.DepartmentCode, e.RegionCode)
}

func (e *MissingRegionError) Unwrap() error { return ErrMissingRegion }
