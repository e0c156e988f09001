// Package csvtable loads the three source tables from CSV files. It is a
// thin adapter: header mapping and integer parsing happen here, once, so
// the domain never sees a raw column name.
package csvtable

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mchastel/referendum-rollup/internal/config"
	"github.com/mchastel/referendum-rollup/internal/domain"
)

// LoadRegions reads the region reference table (comma-delimited, columns
// "code" and "name").
func LoadRegions(path string) ([]domain.Region, error) {
	rows, header, err := readAll(path, ',')
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}

	codeIdx, err := columnIndex(header, "code")
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}
	nameIdx, err := columnIndex(header, "name")
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}

	regions := make([]domain.Region, 0, len(rows))
	for _, row := range rows {
		regions = append(regions, domain.Region{
			Code: strings.TrimSpace(row[codeIdx]),
			Name: strings.TrimSpace(row[nameIdx]),
		})
	}
	return regions, nil
}

// LoadDepartments reads the department reference table (comma-delimited,
// columns "code", "name" and "region_code").
func LoadDepartments(path string) ([]domain.Department, error) {
	rows, header, err := readAll(path, ',')
	if err != nil {
		return nil, fmt.Errorf("load departments: %w", err)
	}

	codeIdx, err := columnIndex(header, "code")
	if err != nil {
		return nil, fmt.Errorf("load departments: %w", err)
	}
	nameIdx, err := columnIndex(header, "name")
	if err != nil {
		return nil, fmt.Errorf("load departments: %w", err)
	}
	regionIdx, err := columnIndex(header, "region_code")
	if err != nil {
		return nil, fmt.Errorf("load departments: %w", err)
	}

	departments := make([]domain.Department, 0, len(rows))
	for _, row := range rows {
		departments = append(departments, domain.Department{
			Code:       strings.TrimSpace(row[codeIdx]),
			Name:       strings.TrimSpace(row[nameIdx]),
			RegionCode: strings.TrimSpace(row[regionIdx]),
		})
	}
	return departments, nil
}

// LoadBallots reads the referendum table using the given delimiter and
// column mapping. Count columns must parse as non-negative integers; a row
// that does not is reported with its line number, because silent zeroes in
// a tally are worse than a failed load.
func LoadBallots(path string, delimiter rune, cols config.ReferendumColumns) ([]domain.BallotRecord, error) {
	rows, header, err := readAll(path, delimiter)
	if err != nil {
		return nil, fmt.Errorf("load referendum: %w", err)
	}

	idx, err := ballotIndexes(header, cols)
	if err != nil {
		return nil, fmt.Errorf("load referendum: %w", err)
	}

	ballots := make([]domain.BallotRecord, 0, len(rows))
	for i, row := range rows {
		line := i + 2 // header is line 1
		b := domain.BallotRecord{
			DepartmentCode: strings.TrimSpace(row[idx.departmentCode]),
			DepartmentName: strings.TrimSpace(row[idx.departmentName]),
			TownCode:       strings.TrimSpace(row[idx.townCode]),
			TownName:       strings.TrimSpace(row[idx.townName]),
		}

		counts := []struct {
			name string
			col  int
			dst  *int64
		}{
			{cols.Registered, idx.registered, &b.Registered},
			{cols.Abstentions, idx.abstentions, &b.Abstentions},
			{cols.NullVotes, idx.nullVotes, &b.NullVotes},
			{cols.ChoiceA, idx.choiceA, &b.ChoiceA},
			{cols.ChoiceB, idx.choiceB, &b.ChoiceB},
		}
		for _, c := range counts {
			v, err := parseCount(row[c.col])
			if err != nil {
				return nil, fmt.Errorf("load referendum: line %d, column %q: %w", line, c.name, err)
			}
			*c.dst = v
		}

		ballots = append(ballots, b)
	}
	return ballots, nil
}

type ballotColumnIndexes struct {
	departmentCode int
	departmentName int
	townCode       int
	townName       int
	registered     int
	abstentions    int
	nullVotes      int
	choiceA        int
	choiceB        int
}

func ballotIndexes(header []string, cols config.ReferendumColumns) (ballotColumnIndexes, error) {
	var idx ballotColumnIndexes
	lookups := []struct {
		name string
		dst  *int
	}{
		{cols.DepartmentCode, &idx.departmentCode},
		{cols.DepartmentName, &idx.departmentName},
		{cols.TownCode, &idx.townCode},
		{cols.TownName, &idx.townName},
		{cols.Registered, &idx.registered},
		{cols.Abstentions, &idx.abstentions},
		{cols.NullVotes, &idx.nullVotes},
		{cols.ChoiceA, &idx.choiceA},
		{cols.ChoiceB, &idx.choiceB},
	}
	for _, l := range lookups {
		i, err := columnIndex(header, l.name)
		if err != nil {
			return ballotColumnIndexes{}, err
		}
		*l.dst = i
	}
	return idx, nil
}

func readAll(path string, delimiter rune) ([][]string, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delimiter
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("%s: empty file", path)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	return rows, header, nil
}

func columnIndex(header []string, name string) (int, error) {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("missing column %q (header: %s)", name, strings.Join(header, ", "))
}

func parseCount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty count")
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative count: %d", v)
	}
	return v, nil
}
