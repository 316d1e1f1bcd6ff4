// Command validate performs data integrity checks across the theft panel
// inputs: the month list, the panel records, and the optional area geometry.
// It verifies the upstream data contract and then runs the alert engine to
// check its output invariants hold for the real data.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -months data/mock/months.json \
//	  -panel data/mock/theft_panel.json \
//	  -areas data/mock/areas.geojson
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"regexp"

	"github.com/google/go-cmp/cmp"

	"github.com/XINRUIQI/CASA0028-Assessment01/internal/domain"
)

var monthRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// validationThreshold is only used to exercise the engine; any in-range
// value works because the invariants hold for all thresholds.
const validationThreshold = 0.25

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	monthsPath := flag.String("months", "", "path to the month list JSON")
	panelPath := flag.String("panel", "", "path to the panel records JSON")
	areasPath := flag.String("areas", "", "path to the area geometry GeoJSON (optional)")
	flag.Parse()

	if *monthsPath == "" || *panelPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*monthsPath, *panelPath, *areasPath); code != 0 {
		os.Exit(code)
	}
}

func run(monthsPath, panelPath, areasPath string) int {
	fmt.Println("=== Theft Panel Integrity Validation ===")
	fmt.Println()

	months, err := loadJSON[string](monthsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load months: %v\n", err)
		return 1
	}

	records, err := loadJSON[domain.PanelRecord](panelPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load panel: %v\n", err)
		return 1
	}

	var areas []byte
	if areasPath != "" {
		areas, err = os.ReadFile(areasPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load areas: %v\n", err)
			return 1
		}
	}

	phases := []*phase{
		validateMonths(months),
		validatePanel(months, records),
		validateEngine(records),
	}
	if areasPath != "" {
		phases = append(phases, validateGeometry(areas, records))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d months, %d panel rows\n", len(months), len(records))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ── Phase 1: Month List ──
// Months must be well-formed and strictly ascending, since the engine relies
// on lexicographic order being chronological order.

func validateMonths(months []string) *phase {
	p := &phase{name: "Phase 1: Month List"}

	if len(months) == 0 {
		p.errorf("month list is empty")
		return p
	}
	for i, m := range months {
		if !monthRe.MatchString(m) {
			p.errorf("month %d: %q is not in YYYY-MM form", i, m)
		}
		if i > 0 && months[i-1] >= m {
			p.errorf("month %d: %q does not ascend from %q", i, m, months[i-1])
		}
	}
	return p
}

// ── Phase 2: Panel Contract ──
// Every record keyed to a listed month, one record per (area, month),
// plausible counts and exposure.

func validatePanel(months []string, records []domain.PanelRecord) *phase {
	p := &phase{name: "Phase 2: Panel Contract"}

	known := make(map[string]bool, len(months))
	for _, m := range months {
		known[m] = true
	}

	seen := map[string]int{}
	names := map[string]string{}
	var nullRisk int

	for i, r := range records {
		if r.AreaID == "" {
			p.errorf("record %d: missing area_id", i)
			continue
		}
		if !known[r.Month] {
			p.errorf("record %d: area %s references unlisted month %q", i, r.AreaID, r.Month)
		}

		key := r.AreaID + "|" + r.Month
		seen[key]++
		if seen[key] == 2 {
			p.errorf("duplicate record for area %s month %s", r.AreaID, r.Month)
		}

		if prev, ok := names[r.AreaID]; ok && prev != r.AreaName {
			p.errorf("area %s has inconsistent names %q and %q", r.AreaID, prev, r.AreaName)
		}
		names[r.AreaID] = r.AreaName

		if r.TheftCount < 0 {
			p.errorf("record %d: area %s month %s has negative theft_count %d", i, r.AreaID, r.Month, r.TheftCount)
		}
		if r.Exposure <= 0 {
			p.errorf("record %d: area %s month %s has non-positive exposure %g", i, r.AreaID, r.Month, r.Exposure)
		}
		if r.RiskIndex == nil {
			nullRisk++
		}
	}

	fmt.Printf("  Note: %d area(s), %d record(s) with missing risk_index\n", len(names), nullRisk)
	return p
}

// ── Phase 3: Engine Invariants ──
// Runs the alert engine over the real data and checks the properties every
// output must satisfy.

func validateEngine(records []domain.PanelRecord) *phase {
	p := &phase{name: "Phase 3: Engine Invariants"}

	enriched := domain.EnrichPanel(records, validationThreshold)

	if len(enriched) != len(records) {
		p.errorf("cardinality: %d records in, %d out", len(records), len(enriched))
	}

	// Per-area output must be strictly ascending by month.
	lastMonth := map[string]string{}
	for i, r := range enriched {
		if prev, ok := lastMonth[r.AreaID]; ok && prev >= r.Month {
			p.errorf("record %d: area %s month %q does not ascend from %q", i, r.AreaID, r.Month, prev)
		}
		lastMonth[r.AreaID] = r.Month
	}

	// Classification totality.
	for i, r := range enriched {
		n := 0
		if r.AlertSpike {
			n++
		}
		if r.AlertTrend3 {
			n++
		}
		want := [3]domain.AlertLevel{domain.AlertNone, domain.AlertWatch, domain.AlertWarning}[n]
		if r.AlertLevel != want {
			p.errorf("record %d: area %s month %s: level %q with %d signal(s)", i, r.AreaID, r.Month, r.AlertLevel, n)
		}
	}

	// Referential transparency: a second run must be identical.
	again := domain.EnrichPanel(records, validationThreshold)
	if diff := cmp.Diff(enriched, again); diff != "" {
		p.errorf("engine is not deterministic (-first +second):\n%s", diff)
	}

	return p
}

// ── Phase 4: Area Geometry ──
// The geometry is an opaque passthrough, but every panel area should have a
// feature so the map layer never renders holes.

func validateGeometry(areas []byte, records []domain.PanelRecord) *phase {
	p := &phase{name: "Phase 4: Area Geometry"}

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(areas, &fc); err != nil {
		p.errorf("geometry is not valid JSON: %v", err)
		return p
	}
	if fc.Type != "FeatureCollection" {
		p.errorf("geometry type is %q, expected FeatureCollection", fc.Type)
	}

	featureIDs := map[string]bool{}
	for _, f := range fc.Features {
		if id, ok := f.Properties["area_id"].(string); ok {
			featureIDs[id] = true
		}
	}

	missing := map[string]bool{}
	for _, r := range records {
		if !featureIDs[r.AreaID] && !missing[r.AreaID] {
			missing[r.AreaID] = true
			p.errorf("area %s has no geometry feature", r.AreaID)
		}
	}
	return p
}
