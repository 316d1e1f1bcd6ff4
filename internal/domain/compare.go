package domain

import "math"

// ComparePeriods builds one DeltaRecord per area present at monthA or monthB
// (the union, not the intersection). An area missing from one side still
// produces a record with that side's count defaulted to zero and its risk
// index left nil. DeltaRiskIndex is computed only when both sides observed a
// risk value; a missing side yields nil rather than a zero that could be
// read as "no change".
//
// Areas are emitted in order of first appearance in the enriched slice,
// which keeps the output deterministic given EnrichPanel's ordering.
//
// Comparing a month against itself returns an empty result: an all-zero
// delta set would be indistinguishable from a confirmed no-change.
func ComparePeriods(enriched []EnrichedRecord, monthA, monthB string) []DeltaRecord {
	if monthA == monthB {
		return nil
	}

	type sides struct {
		a *EnrichedRecord
		b *EnrichedRecord
	}

	order := make([]string, 0)
	byArea := make(map[string]*sides)
	for i := range enriched {
		r := &enriched[i]
		if r.Month != monthA && r.Month != monthB {
			continue
		}
		s, seen := byArea[r.AreaID]
		if !seen {
			s = &sides{}
			byArea[r.AreaID] = s
			order = append(order, r.AreaID)
		}
		if r.Month == monthA {
			s.a = r
		} else {
			s.b = r
		}
	}

	out := make([]DeltaRecord, 0, len(order))
	for _, areaID := range order {
		s := byArea[areaID]
		out = append(out, buildDelta(areaID, s.a, s.b))
	}
	return out
}

func buildDelta(areaID string, a, b *EnrichedRecord) DeltaRecord {
	d := DeltaRecord{
		AreaID:     areaID,
		AlertLevel: AlertNone,
	}

	if a != nil {
		d.AreaName = a.AreaName
		d.RiskIndexA = a.RiskIndex
		d.TheftCountA = a.TheftCount
	}
	if b != nil {
		if d.AreaName == "" {
			d.AreaName = b.AreaName
		}
		d.RiskIndexB = b.RiskIndex
		d.TheftCountB = b.TheftCount
		d.AlertLevel = b.AlertLevel
		d.StabilityFlag = b.StabilityFlag
	}

	d.DeltaCount = d.TheftCountB - d.TheftCountA
	if d.RiskIndexA != nil && d.RiskIndexB != nil {
		delta := round4(*d.RiskIndexB - *d.RiskIndexA)
		d.DeltaRiskIndex = &delta
	}
	return d
}

// round4 rounds to 4 decimal places, half away from zero.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
