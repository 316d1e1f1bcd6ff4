package domain

import (
	"math"
	"sort"
)

// Metric names accepted by TopRanked for each record kind.
const (
	MetricRiskIndex  = "risk_index"
	MetricTheftCount = "theft_count"
	MetricExposure   = "exposure"

	MetricDeltaRiskIndex = "delta_risk_index"
	MetricDeltaCount     = "delta_count"
	MetricRiskIndexB     = "risk_index_b"
	MetricTheftCountB    = "theft_count_b"
)

// rankLimit caps the ranking output for display.
const rankLimit = 10

// Rankable is a record that can be ordered by a named metric and filtered
// by alert level.
type Rankable interface {
	// RankMetric returns the value of the named metric. ok is false when
	// the metric is unknown for this record kind or its value is absent.
	RankMetric(name string) (value float64, ok bool)

	// RankLevel returns the record's alert level.
	RankLevel() AlertLevel
}

// TopRanked returns the top 10 records by descending metric value. Records
// whose metric is absent or NaN are discarded; with alertsOnly, records at
// level none are discarded too. The sort is stable, so equal metric values
// keep their relative input order. The input slice is never mutated.
func TopRanked[T Rankable](records []T, metric string, alertsOnly bool) []T {
	kept := make([]T, 0, len(records))
	for _, r := range records {
		v, ok := r.RankMetric(metric)
		if !ok || math.IsNaN(v) {
			continue
		}
		if alertsOnly && r.RankLevel() == AlertNone {
			continue
		}
		kept = append(kept, r)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		vi, _ := kept[i].RankMetric(metric)
		vj, _ := kept[j].RankMetric(metric)
		return vi > vj
	})

	if len(kept) > rankLimit {
		kept = kept[:rankLimit]
	}
	return kept
}

func (r EnrichedRecord) RankMetric(name string) (float64, bool) {
	switch name {
	case MetricRiskIndex:
		if r.RiskIndex == nil {
			return 0, false
		}
		return *r.RiskIndex, true
	case MetricTheftCount:
		return float64(r.TheftCount), true
	case MetricExposure:
		return r.Exposure, true
	default:
		return 0, false
	}
}

func (r EnrichedRecord) RankLevel() AlertLevel {
	if r.AlertLevel == "" {
		return AlertNone
	}
	return r.AlertLevel
}

func (d DeltaRecord) RankMetric(name string) (float64, bool) {
	switch name {
	case MetricDeltaRiskIndex:
		if d.DeltaRiskIndex == nil {
			return 0, false
		}
		return *d.DeltaRiskIndex, true
	case MetricDeltaCount:
		return float64(d.DeltaCount), true
	case MetricRiskIndexB:
		if d.RiskIndexB == nil {
			return 0, false
		}
		return *d.RiskIndexB, true
	case MetricTheftCountB:
		return float64(d.TheftCountB), true
	default:
		return 0, false
	}
}

func (d DeltaRecord) RankLevel() AlertLevel {
	if d.AlertLevel == "" {
		return AlertNone
	}
	return d.AlertLevel
}
