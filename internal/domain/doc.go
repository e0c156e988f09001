// Package domain models French referendum tallies and the administrative
// geography they roll up into.
//
// # Data Sources
//
// Three tables feed the rollup, each published independently:
//
//	regions.csv      — code,name              (INSEE region codes, e.g. "84")
//	departments.csv  — code,name,region_code  (INSEE department codes)
//	referendum.csv   — per-municipality tallies, semicolon-delimited
//
// The referendum file carries one row per municipality with the columns
// "Department code", "Department name", "Town code", "Town name",
// "Registered", "Abstentions", "Null", "Choice A" and "Choice B".
//
// # INSEE Department Code Conventions
//
// The three sources do not agree on how department codes are written, so
// every code passes through [Normalize] before any join:
//
//	Mainland: "01".."95", stored with or without the leading zero depending
//	  on the source ("1" and "01" are both Ain).
//	Corsica:  "2A" and "2B" replaced the numeric "20" in 1976 and are the
//	  only alphanumeric mainland codes.
//	Overseas: three-digit codes "971".."978" (DOM-TOM-COM, e.g. "971" is
//	  Guadeloupe).
//	Abroad:   codes starting with "Z" ("ZA".."ZZ"), used for citizens
//	  registered outside the country.
//
// Normalization left-pads single-digit numerics to width 2 and uppercases
// Corsican and abroad codes. It never turns one class of code into
// another: a code that fits no class is a [MalformedCodeError], not a
// best-effort guess.
//
// # Rollup
//
// Ballot records join to departments and departments join to regions on
// normalized codes. The reference tables (regions, departments) are small
// and assumed complete, so an unresolved department is fatal. The ballot
// table is large and messy, so rows outside the requested [ScopePolicy]
// and rows with no matching department are excluded and counted rather
// than aborting the run. Totals are summed per region as int64 and the
// expressed-vote ratio ChoiceA/(ChoiceA+ChoiceB) is attached, nil when no
// votes were expressed.
package domain
