// Package dataset loads and holds the static inputs the analytics engine
// consumes: the ordered month list, the panel record array, and the area
// geometry used only by rendering. Validation of the upstream data contract
// happens here, once, so the engine itself stays repair-free.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/XINRUIQI/CASA0028-Assessment01/internal/domain"
)

// monthRe matches the "YYYY-MM" month identifiers whose lexicographic order
// is their chronological order.
var monthRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Snapshot is one immutable version of the full input dataset. Version
// changes on every load, which gives downstream caches a key that is cheap
// to compare.
type Snapshot struct {
	Version     string
	GeneratedAt time.Time
	LoadedAt    time.Time
	Months      []string
	Records     []domain.PanelRecord
	Areas       json.RawMessage
}

// NewSnapshot validates the upstream data contract and stamps a fresh
// snapshot. areas may be nil; geometry is an opaque passthrough for the map
// layer and is never inspected beyond being valid JSON.
func NewSnapshot(months []string, records []domain.PanelRecord, areas json.RawMessage, generatedAt time.Time) (Snapshot, error) {
	if err := validatePanel(months, records); err != nil {
		return Snapshot{}, err
	}
	if len(areas) > 0 && !json.Valid(areas) {
		return Snapshot{}, fmt.Errorf("area geometry is not valid JSON")
	}

	return Snapshot{
		Version:     uuid.NewString(),
		GeneratedAt: generatedAt,
		LoadedAt:    clock.Now(),
		Months:      months,
		Records:     records,
		Areas:       areas,
	}, nil
}

// LoadFiles reads the three startup resources. areasPath may be empty when
// no map layer is served.
func LoadFiles(monthsPath, panelPath, areasPath string) (Snapshot, error) {
	var months []string
	if err := readJSONFile(monthsPath, &months); err != nil {
		return Snapshot{}, fmt.Errorf("load months: %w", err)
	}

	var records []domain.PanelRecord
	if err := readJSONFile(panelPath, &records); err != nil {
		return Snapshot{}, fmt.Errorf("load panel: %w", err)
	}

	var areas json.RawMessage
	if areasPath != "" {
		data, err := os.ReadFile(areasPath)
		if err != nil {
			return Snapshot{}, fmt.Errorf("load areas: %w", err)
		}
		areas = data
	}

	return NewSnapshot(months, records, areas, clock.Now())
}

// snapshotPayload is the wire form of a full panel refresh message.
type snapshotPayload struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Months      []string             `json:"months"`
	Records     []domain.PanelRecord `json:"records"`
}

// ParseSnapshot deserializes a refresh message into a validated snapshot.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var payload snapshotPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot: %w", err)
	}
	if payload.GeneratedAt.IsZero() {
		return Snapshot{}, fmt.Errorf("parse snapshot: generated_at is required")
	}
	return NewSnapshot(payload.Months, payload.Records, nil, payload.GeneratedAt)
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// validatePanel enforces the upstream contract: well-formed months in strict
// ascending order, every record keyed to a listed month, at most one record
// per (area, month), positive exposure, and non-negative counts.
func validatePanel(months []string, records []domain.PanelRecord) error {
	known := make(map[string]bool, len(months))
	for i, m := range months {
		if !monthRe.MatchString(m) {
			return fmt.Errorf("month %q is not in YYYY-MM form", m)
		}
		if i > 0 && months[i-1] >= m {
			return fmt.Errorf("months out of order: %q before %q", months[i-1], m)
		}
		known[m] = true
	}

	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if r.AreaID == "" {
			return fmt.Errorf("record for month %q has no area_id", r.Month)
		}
		if !known[r.Month] {
			return fmt.Errorf("area %s references unlisted month %q", r.AreaID, r.Month)
		}
		key := r.AreaID + "|" + r.Month
		if seen[key] {
			return fmt.Errorf("duplicate record for area %s month %s", r.AreaID, r.Month)
		}
		seen[key] = true

		if r.TheftCount < 0 {
			return fmt.Errorf("area %s month %s: negative theft_count %d", r.AreaID, r.Month, r.TheftCount)
		}
		if r.Exposure <= 0 {
			return fmt.Errorf("area %s month %s: exposure must be positive, got %g", r.AreaID, r.Month, r.Exposure)
		}
	}
	return nil
}
