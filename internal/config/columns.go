package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ReferendumColumns maps the logical ballot fields onto the referendum
// CSV's header names. The mapping is applied exactly once, at load time;
// nothing downstream ever touches a raw header again.
type ReferendumColumns struct {
	DepartmentCode string `yaml:"department_code"`
	DepartmentName string `yaml:"department_name"`
	TownCode       string `yaml:"town_code"`
	TownName       string `yaml:"town_name"`
	Registered     string `yaml:"registered"`
	Abstentions    string `yaml:"abstentions"`
	NullVotes      string `yaml:"null_votes"`
	ChoiceA        string `yaml:"choice_a"`
	ChoiceB        string `yaml:"choice_b"`
}

// ColumnMapping holds per-table header mappings, loadable from YAML for
// sources whose exports rename columns.
type ColumnMapping struct {
	Referendum ReferendumColumns `yaml:"referendum"`
}

// DefaultColumnMapping returns the header names of the standard
// interior-ministry referendum export.
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		Referendum: ReferendumColumns{
			DepartmentCode: "Department code",
			DepartmentName: "Department name",
			TownCode:       "Town code",
			TownName:       "Town name",
			Registered:     "Registered",
			Abstentions:    "Abstentions",
			NullVotes:      "Null",
			ChoiceA:        "Choice A",
			ChoiceB:        "Choice B",
		},
	}
}

// LoadColumnMapping reads a YAML mapping file and overlays it on the
// defaults, so a file only needs to name the columns that differ.
func LoadColumnMapping(path string) (ColumnMapping, error) {
	mapping := DefaultColumnMapping()
	if path == "" {
		return mapping, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ColumnMapping{}, fmt.Errorf("read column mapping: %w", err)
	}
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return ColumnMapping{}, fmt.Errorf("parse column mapping: %w", err)
	}

	if err := mapping.validate(); err != nil {
		return ColumnMapping{}, err
	}
	return mapping, nil
}

func (m ColumnMapping) validate() error {
	cols := map[string]string{
		"department_code": m.Referendum.DepartmentCode,
		"department_name": m.Referendum.DepartmentName,
		"town_code":       m.Referendum.TownCode,
		"town_name":       m.Referendum.TownName,
		"registered":      m.Referendum.Registered,
		"abstentions":     m.Referendum.Abstentions,
		"null_votes":      m.Referendum.NullVotes,
		"choice_a":        m.Referendum.ChoiceA,
		"choice_b":        m.Referendum.ChoiceB,
	}
	seen := make(map[string]string, len(cols))
	for field, header := range cols {
		if header == "" {
			return fmt.Errorf("column mapping: %s is empty", field)
		}
		if prev, dup := seen[header]; dup {
			return fmt.Errorf("column mapping: %s and %s both map to %q", prev, field, header)
		}
		seen[header] = field
	}
	return nil
}
