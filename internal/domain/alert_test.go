package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func risk(v float64) *float64 { return &v }

// seriesRecords builds one area's records for months 2024-01 onward, one per
// value. A nil entry produces a month with no risk index.
func seriesRecords(areaID string, values []*float64) []PanelRecord {
	months := []string{
		"2024-01", "2024-02", "2024-03", "2024-04", "2024-05", "2024-06",
		"2024-07", "2024-08", "2024-09", "2024-10", "2024-11", "2024-12",
	}
	records := make([]PanelRecord, 0, len(values))
	for i, v := range values {
		records = append(records, PanelRecord{
			AreaID:     areaID,
			AreaName:   areaID,
			Month:      months[i],
			TheftCount: 10,
			Exposure:   1000,
			RiskIndex:  v,
		})
	}
	return records
}

func TestEnrichPanel_SpikeDetection(t *testing.T) {
	t.Run("flat history then jump fires spike", func(t *testing.T) {
		// Baseline for month 7 = mean(1,1,1,1,1,1) = 1.0; cutoff at
		// threshold 0.5 is 1.5 and 3 > 1.5.
		records := seriesRecords("E01", []*float64{
			risk(1), risk(1), risk(1), risk(1), risk(1), risk(1), risk(3),
		})

		out := EnrichPanel(records, 0.5)
		require.Len(t, out, 7)

		last := out[6]
		assert.True(t, last.AlertSpike)
		assert.False(t, last.AlertTrend3)
		assert.Equal(t, AlertWatch, last.AlertLevel)

		for _, r := range out[:6] {
			assert.False(t, r.AlertSpike, "month %s", r.Month)
		}
	})

	t.Run("value exactly at cutoff does not fire", func(t *testing.T) {
		records := seriesRecords("E01", []*float64{
			risk(1), risk(1), risk(1), risk(1.5),
		})

		out := EnrichPanel(records, 0.5)
		assert.False(t, out[3].AlertSpike, "strict inequality required")
	})

	t.Run("fewer than 3 observed values leaves baseline undefined", func(t *testing.T) {
		records := seriesRecords("E01", []*float64{
			risk(1), nil, nil, nil, nil, risk(1), risk(100),
		})

		out := EnrichPanel(records, 0.1)
		assert.False(t, out[6].AlertSpike, "2 observations is not enough history")
	})

	t.Run("exactly 3 observed values defines baseline", func(t *testing.T) {
		records := seriesRecords("E01", []*float64{
			risk(1), nil, risk(1), nil, nil, risk(1), risk(100),
		})

		out := EnrichPanel(records, 0.1)
		assert.True(t, out[6].AlertSpike)
	})

	t.Run("window excludes records older than 6 months", func(t *testing.T) {
		// Months 1-2 carry huge values but fall outside the 6-month
		// window at position 8; baseline is mean of months 3-8 = 1.0.
		records := seriesRecords("E01", []*float64{
			risk(100), risk(100), risk(1), risk(1), risk(1), risk(1), risk(1), risk(1), risk(2),
		})

		out := EnrichPanel(records, 0.5)
		assert.True(t, out[8].AlertSpike)
	})

	t.Run("missing current value never spikes", func(t *testing.T) {
		records := seriesRecords("E01", []*float64{
			risk(1), risk(1), risk(1), risk(1), nil,
		})

		out := EnrichPanel(records, 0.1)
		assert.False(t, out[4].AlertSpike)
	})
}

func TestEnrichPanel_TrendDetection(t *testing.T) {
	tests := []struct {
		name     string
		values   []*float64
		expected bool
	}{
		{"strictly increasing run", []*float64{risk(0.8), risk(1.0), risk(1.3)}, true},
		{"dip in the middle", []*float64{risk(1.0), risk(0.8), risk(1.3)}, false},
		{"plateau breaks strictness", []*float64{risk(0.8), risk(0.8), risk(1.3)}, false},
		{"nil at t-1 breaks the run", []*float64{risk(0.8), nil, risk(1.3)}, false},
		{"nil at t-2 breaks the run", []*float64{nil, risk(1.0), risk(1.3)}, false},
		{"nil current never fires", []*float64{risk(0.8), risk(1.0), nil}, false},
		{"two records is too short", []*float64{risk(0.8), risk(1.0)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := EnrichPanel(seriesRecords("E01", tt.values), 0.5)
			require.Len(t, out, len(tt.values))
			assert.Equal(t, tt.expected, out[len(out)-1].AlertTrend3)
		})
	}

	t.Run("earlier observations do not substitute for a gap", func(t *testing.T) {
		// 0.5 < 0.8 observed at positions 0-1 does not extend across the
		// nil at position 2; only positions 2-4 matter for position 4.
		records := seriesRecords("E01", []*float64{
			risk(0.5), risk(0.8), nil, risk(1.0), risk(1.3),
		})

		out := EnrichPanel(records, 0.5)
		assert.False(t, out[4].AlertTrend3)
	})
}

func TestEnrichPanel_Classification(t *testing.T) {
	t.Run("both signals escalate to warning", func(t *testing.T) {
		records := seriesRecords("E01", []*float64{
			risk(1), risk(1), risk(1), risk(1), risk(1.1), risk(1.2), risk(3),
		})

		out := EnrichPanel(records, 0.5)
		last := out[6]
		assert.True(t, last.AlertSpike)
		assert.True(t, last.AlertTrend3)
		assert.Equal(t, AlertWarning, last.AlertLevel)
	})

	t.Run("level is total over the two booleans", func(t *testing.T) {
		records := append(
			seriesRecords("E01", []*float64{risk(1), risk(1), risk(1), risk(1), risk(1.1), risk(1.2), risk(3)}),
			seriesRecords("E02", []*float64{risk(2), risk(1), risk(2), risk(1), risk(2), risk(1)})...,
		)

		for _, r := range EnrichPanel(records, 0.3) {
			fired := 0
			if r.AlertSpike {
				fired++
			}
			if r.AlertTrend3 {
				fired++
			}
			switch fired {
			case 0:
				assert.Equal(t, AlertNone, r.AlertLevel)
			case 1:
				assert.Equal(t, AlertWatch, r.AlertLevel)
			case 2:
				assert.Equal(t, AlertWarning, r.AlertLevel)
			}
		}
	})
}

func TestEnrichPanel_Ordering(t *testing.T) {
	t.Run("groups by first appearance, months ascending within group", func(t *testing.T) {
		records := []PanelRecord{
			{AreaID: "E02", Month: "2024-03", RiskIndex: risk(1)},
			{AreaID: "E01", Month: "2024-02", RiskIndex: risk(1)},
			{AreaID: "E02", Month: "2024-01", RiskIndex: risk(1)},
			{AreaID: "E01", Month: "2024-01", RiskIndex: risk(1)},
			{AreaID: "E02", Month: "2024-02", RiskIndex: risk(1)},
		}

		out := EnrichPanel(records, 0.5)
		require.Len(t, out, 5)

		var got []string
		for _, r := range out {
			got = append(got, r.AreaID+"/"+r.Month)
		}
		assert.Equal(t, []string{
			"E02/2024-01", "E02/2024-02", "E02/2024-03",
			"E01/2024-01", "E01/2024-02",
		}, got)
	})

	t.Run("per-area cardinality is preserved", func(t *testing.T) {
		records := append(
			seriesRecords("E01", []*float64{risk(1), nil, risk(2)}),
			seriesRecords("E02", []*float64{nil, nil})...,
		)

		out := EnrichPanel(records, 0.5)
		counts := map[string]int{}
		for _, r := range out {
			counts[r.AreaID]++
		}
		assert.Equal(t, map[string]int{"E01": 3, "E02": 2}, counts)
	})
}

func TestEnrichPanel_PureAndIdempotent(t *testing.T) {
	records := append(
		seriesRecords("E01", []*float64{risk(1), risk(1), risk(1), risk(1), risk(2), nil, risk(3)}),
		seriesRecords("E02", []*float64{risk(0.5), risk(0.7), risk(0.9)})...,
	)

	first := EnrichPanel(records, 0.25)
	second := EnrichPanel(records, 0.25)
	assert.Equal(t, first, second)
}

func TestEnrichPanel_EmptyInput(t *testing.T) {
	assert.Empty(t, EnrichPanel(nil, 0.5))
	assert.Empty(t, EnrichPanel([]PanelRecord{}, 0.5))
}

func TestBaselineAt(t *testing.T) {
	group := seriesRecords("E01", []*float64{
		risk(1), risk(2), nil, risk(3), risk(4), nil, risk(5), risk(6),
	})

	t.Run("mean of observed values only", func(t *testing.T) {
		// Window for t=7 spans positions 1-6: 2, nil, 3, 4, nil, 5.
		baseline, ok := baselineAt(group, 7)
		require.True(t, ok)
		assert.InDelta(t, 3.5, baseline, 1e-9)
	})

	t.Run("current record excluded from its own window", func(t *testing.T) {
		baseline, ok := baselineAt(group, 4)
		require.True(t, ok)
		assert.InDelta(t, 2.0, baseline, 1e-9) // mean(1, 2, 3)
	})

	t.Run("undefined at the start of the series", func(t *testing.T) {
		_, ok := baselineAt(group, 0)
		assert.False(t, ok)
		_, ok = baselineAt(group, 2)
		assert.False(t, ok)
	})
}
