package domain

import "sort"

const (
	// baselineWindow is the number of preceding months eligible for the
	// rolling baseline, not counting the current month.
	baselineWindow = 6

	// baselineMinObs is the minimum number of observed (non-nil) risk
	// values the window must contain before a baseline is defined.
	baselineMinObs = 3
)

// EnrichPanel computes the two anomaly signals and the alert level for every
// panel record. It is a pure function of (records, threshold): identical
// inputs always produce identical output, so callers may invoke it on every
// threshold change without keeping incremental state.
//
// Records are grouped by area in order of first appearance in the input;
// within each group they are emitted sorted ascending by month, and groups
// are concatenated in first-appearance order. Output cardinality equals
// input cardinality. Empty input yields empty output.
//
// The spike signal fires when the current risk index strictly exceeds the
// rolling baseline by more than the threshold fraction. The baseline is the
// mean of the observed risk values in the up-to-6 preceding months and is
// undefined with fewer than 3 observations, in which case the signal never
// fires. The trend signal fires on three consecutive months of strictly
// increasing risk; a missing value anywhere in the run breaks it.
func EnrichPanel(records []PanelRecord, threshold float64) []EnrichedRecord {
	if len(records) == 0 {
		return nil
	}

	order := make([]string, 0)
	groups := make(map[string][]PanelRecord)
	for _, r := range records {
		if _, seen := groups[r.AreaID]; !seen {
			order = append(order, r.AreaID)
		}
		groups[r.AreaID] = append(groups[r.AreaID], r)
	}

	out := make([]EnrichedRecord, 0, len(records))
	for _, areaID := range order {
		group := groups[areaID]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Month < group[j].Month
		})

		for t := range group {
			spike := spikeSignal(group, t, threshold)
			trend := trendSignal(group, t)
			out = append(out, EnrichedRecord{
				PanelRecord: group[t],
				AlertSpike:  spike,
				AlertTrend3: trend,
				AlertLevel:  classifyAlert(spike, trend),
			})
		}
	}
	return out
}

// baselineAt returns the mean risk index over the window preceding position t,
// skipping missing values. ok is false when the window holds fewer than
// baselineMinObs observations.
func baselineAt(group []PanelRecord, t int) (float64, bool) {
	start := t - baselineWindow
	if start < 0 {
		start = 0
	}

	var sum float64
	var n int
	for _, r := range group[start:t] {
		if r.RiskIndex == nil {
			continue
		}
		sum += *r.RiskIndex
		n++
	}
	if n < baselineMinObs {
		return 0, false
	}
	return sum / float64(n), true
}

// spikeSignal reports whether the record at position t exceeds its baseline
// by more than the threshold fraction. Strict inequality: a value exactly at
// the cutoff does not fire.
func spikeSignal(group []PanelRecord, t int, threshold float64) bool {
	if group[t].RiskIndex == nil {
		return false
	}
	baseline, ok := baselineAt(group, t)
	if !ok {
		return false
	}
	return *group[t].RiskIndex > baseline*(1+threshold)
}

// trendSignal reports whether positions t-2, t-1, t form a strictly
// increasing run of observed risk values. This is a consecutive-three check:
// a nil at t-1 or t-2 breaks the run even if earlier observations exist.
func trendSignal(group []PanelRecord, t int) bool {
	if t < 2 {
		return false
	}
	r0, r1, r2 := group[t-2].RiskIndex, group[t-1].RiskIndex, group[t].RiskIndex
	if r0 == nil || r1 == nil || r2 == nil {
		return false
	}
	return *r0 < *r1 && *r1 < *r2
}

func classifyAlert(spike, trend bool) AlertLevel {
	switch {
	case spike && trend:
		return AlertWarning
	case spike || trend:
		return AlertWatch
	default:
		return AlertNone
	}
}
