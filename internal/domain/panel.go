package domain

// AlertLevel classifies an area-month by how many anomaly signals fired.
type AlertLevel string

const (
	AlertNone    AlertLevel = "none"
	AlertWatch   AlertLevel = "watch"
	AlertWarning AlertLevel = "warning"
)

// PanelRecord is one area's metrics for one month, as produced by the
// upstream panel build. Months use "YYYY-MM" so lexicographic order is
// chronological order. RiskIndex is nil when the area has no data for the
// month; nil is distinct from zero and must stay distinct through every
// derived computation.
type PanelRecord struct {
	AreaID        string   `json:"area_id"`
	AreaName      string   `json:"area_name,omitempty"`
	Month         string   `json:"month"`
	TheftCount    int      `json:"theft_count"`
	Exposure      float64  `json:"exposure"`
	RiskIndex     *float64 `json:"risk_index"`
	StabilityFlag bool     `json:"stability_flag,omitempty"`
}

// EnrichedRecord is a PanelRecord plus the derived alert fields. It is
// recomputed in full on every call and never persisted.
type EnrichedRecord struct {
	PanelRecord

	AlertSpike  bool       `json:"alert_spike"`
	AlertTrend3 bool       `json:"alert_trend3"`
	AlertLevel  AlertLevel `json:"alert_level"`
}

// DeltaRecord compares one area's metrics at two months. DeltaRiskIndex is
// nil whenever either side's risk index is missing; counts default to zero
// for a missing side.
type DeltaRecord struct {
	AreaID         string     `json:"area_id"`
	AreaName       string     `json:"area_name,omitempty"`
	DeltaRiskIndex *float64   `json:"delta_risk_index"`
	DeltaCount     int        `json:"delta_count"`
	RiskIndexA     *float64   `json:"risk_index_a"`
	RiskIndexB     *float64   `json:"risk_index_b"`
	TheftCountA    int        `json:"theft_count_a"`
	TheftCountB    int        `json:"theft_count_b"`
	AlertLevel     AlertLevel `json:"alert_level"`
	StabilityFlag  bool       `json:"stability_flag"`
}

// FilterMonth returns the enriched records for a single month, preserving
// their relative order. An unknown month yields an empty slice.
func FilterMonth(records []EnrichedRecord, month string) []EnrichedRecord {
	out := make([]EnrichedRecord, 0)
	for _, r := range records {
		if r.Month == month {
			out = append(out, r)
		}
	}
	return out
}
