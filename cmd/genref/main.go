// Command genref generates a consistent set of reference and ballot CSV
// fixtures for local runs and manual testing. The regions, departments and
// referendum tables it writes share the same code space, so the pipeline
// joins them cleanly end to end.
//
// Usage:
//
//	go run ./cmd/genref -out data
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

type regionDef struct {
	code string
	name string
}

type departmentDef struct {
	code       string
	name       string
	regionCode string
}

var regions = []regionDef{
	{"11", "Île-de-France"},
	{"24", "Centre-Val de Loire"},
	{"32", "Hauts-de-France"},
	{"44", "Grand Est"},
	{"53", "Bretagne"},
	{"75", "Nouvelle-Aquitaine"},
	{"76", "Occitanie"},
	{"84", "Auvergne-Rhône-Alpes"},
	{"93", "Provence-Alpes-Côte d'Azur"},
	{"01", "Guadeloupe"},
}

var departments = []departmentDef{
	{"75", "Paris", "11"},
	{"77", "Seine-et-Marne", "11"},
	{"78", "Yvelines", "11"},
	{"18", "Cher", "24"},
	{"45", "Loiret", "24"},
	{"59", "Nord", "32"},
	{"62", "Pas-de-Calais", "32"},
	{"67", "Bas-Rhin", "44"},
	{"68", "Haut-Rhin", "44"},
	{"29", "Finistère", "53"},
	{"35", "Ille-et-Vilaine", "53"},
	{"33", "Gironde", "75"},
	{"64", "Pyrénées-Atlantiques", "75"},
	{"31", "Haute-Garonne", "76"},
	{"34", "Hérault", "76"},
	{"1", "Ain", "84"}, // unpadded on purpose, the loader normalizes it
	{"69", "Rhône", "84"},
	{"13", "Bouches-du-Rhône", "93"},
	{"83", "Var", "93"},
	{"971", "Guadeloupe", "01"},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "data", "directory for the generated CSV files")
	seed := flag.Int64("seed", 42, "seed for the ballot count generator")
	flag.Parse()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if err := writeRegions(filepath.Join(*outDir, "regions.csv")); err != nil {
		return err
	}
	if err := writeDepartments(filepath.Join(*outDir, "departments.csv")); err != nil {
		return err
	}
	ballotRows, err := writeReferendum(filepath.Join(*outDir, "referendum.csv"), *seed)
	if err != nil {
		return err
	}

	log.Printf("wrote %d regions, %d departments, %d ballot rows to %s",
		len(regions), len(departments), ballotRows, *outDir)
	return nil
}

func writeRegions(path string) error {
	rows := [][]string{{"code", "name"}}
	for _, r := range regions {
		rows = append(rows, []string{r.code, r.name})
	}
	return writeCSV(path, ',', rows)
}

func writeDepartments(path string) error {
	rows := [][]string{{"code", "name", "region_code"}}
	for _, d := range departments {
		rows = append(rows, []string{d.code, d.name, d.regionCode})
	}
	return writeCSV(path, ',', rows)
}

// writeReferendum emits several town-level ballot rows per department with
// plausible counts: abstentions and null votes come out of the registered
// total, and the rest splits between the two choices with a row-dependent
// lean.
func writeReferendum(path string, seed int64) (int, error) {
	rng := rand.New(rand.NewSource(seed))

	rows := [][]string{{
		"Department code", "Department name", "Town code", "Town name",
		"Registered", "Abstentions", "Null", "Choice A", "Choice B",
	}}
	for _, d := range departments {
		towns := 2 + rng.Intn(3)
		for t := 1; t <= towns; t++ {
			registered := 5_000 + rng.Int63n(150_000)
			abstentions := registered * (20 + rng.Int63n(25)) / 100
			nullVotes := registered * (1 + rng.Int63n(3)) / 100
			expressed := registered - abstentions - nullVotes

			lean := 35 + rng.Int63n(31) // choice A share of expressed, 35-65%
			choiceA := expressed * lean / 100
			choiceB := expressed - choiceA

			rows = append(rows, []string{
				d.code,
				d.name,
				strconv.Itoa(t),
				fmt.Sprintf("%s Town %d", d.name, t),
				strconv.FormatInt(registered, 10),
				strconv.FormatInt(abstentions, 10),
				strconv.FormatInt(nullVotes, 10),
				strconv.FormatInt(choiceA, 10),
				strconv.FormatInt(choiceB, 10),
			})
		}
	}
	return len(rows) - 1, writeCSV(path, ';', rows)
}

func writeCSV(path string, delimiter rune, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = delimiter
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
