package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XINRUIQI/CASA0028-Assessment01/internal/dataset"
	"github.com/XINRUIQI/CASA0028-Assessment01/internal/domain"
	"github.com/XINRUIQI/CASA0028-Assessment01/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func risk(v float64) *float64 { return &v }

func testSnapshot(t *testing.T, generatedAt time.Time) dataset.Snapshot {
	t.Helper()

	months := []string{"2024-01", "2024-02", "2024-03", "2024-04", "2024-05", "2024-06", "2024-07"}
	var records []domain.PanelRecord

	// E01 holds flat at 1.0 then jumps to 3.0 in the last month.
	values := []*float64{risk(1), risk(1), risk(1), risk(1), risk(1), risk(1), risk(3)}
	for i, m := range months {
		records = append(records, domain.PanelRecord{
			AreaID: "E01", AreaName: "Camden", Month: m,
			TheftCount: 10 + i, Exposure: 1000, RiskIndex: values[i],
		})
	}
	// E02 is quiet throughout.
	for i, m := range months {
		records = append(records, domain.PanelRecord{
			AreaID: "E02", AreaName: "Hackney", Month: m,
			TheftCount: 5, Exposure: 800, RiskIndex: risk(0.5 + float64(i%2)*0.01),
		})
	}

	snap, err := dataset.NewSnapshot(months, records, nil, generatedAt)
	require.NoError(t, err)
	return snap
}

func newTestService(t *testing.T) (*Service, dataset.Snapshot) {
	t.Helper()

	store := dataset.NewStore()
	svc := New(store, observability.NewMetricsForTesting(), discardLogger(), 8, 0.25)

	snap := testSnapshot(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, svc.ApplySnapshot(snap))
	return svc, snap
}

func TestService_NoDataset(t *testing.T) {
	store := dataset.NewStore()
	svc := New(store, observability.NewMetricsForTesting(), discardLogger(), 8, 0.25)

	_, err := svc.Months()
	assert.ErrorIs(t, err, ErrNoDataset)
	_, err = svc.Enriched(0.5)
	assert.ErrorIs(t, err, ErrNoDataset)
	_, err = svc.Compare("2024-01", "2024-02", 0.5)
	assert.ErrorIs(t, err, ErrNoDataset)
	assert.Error(t, svc.CheckReadiness(context.Background()))
}

func TestService_Enriched(t *testing.T) {
	svc, _ := newTestService(t)

	enriched, err := svc.Enriched(0.5)
	require.NoError(t, err)
	require.Len(t, enriched, 14)

	// The E01 jump in the last month fires the spike signal.
	var last domain.EnrichedRecord
	for _, r := range enriched {
		if r.AreaID == "E01" && r.Month == "2024-07" {
			last = r
		}
	}
	assert.True(t, last.AlertSpike)
	assert.Equal(t, domain.AlertWatch, last.AlertLevel)
}

func TestService_EnrichedMemoization(t *testing.T) {
	svc, snap := newTestService(t)

	first, err := svc.Enriched(0.5)
	require.NoError(t, err)
	second, err := svc.Enriched(0.5)
	require.NoError(t, err)

	// Same snapshot and threshold must return the cached slice, not a
	// fresh computation.
	require.NotEmpty(t, first)
	assert.Same(t, &first[0], &second[0])

	// A different threshold recomputes.
	other, err := svc.Enriched(0.75)
	require.NoError(t, err)
	assert.NotSame(t, &first[0], &other[0])

	// A new snapshot version invalidates the cache.
	newer := testSnapshot(t, snap.GeneratedAt.Add(time.Hour))
	require.True(t, svc.ApplySnapshot(newer))

	third, err := svc.Enriched(0.5)
	require.NoError(t, err)
	assert.NotSame(t, &first[0], &third[0])
}

func TestService_MonthSlice(t *testing.T) {
	svc, _ := newTestService(t)

	slice, err := svc.MonthSlice("2024-07", 0.5)
	require.NoError(t, err)
	require.Len(t, slice, 2)
	for _, r := range slice {
		assert.Equal(t, "2024-07", r.Month)
	}

	empty, err := svc.MonthSlice("2030-01", 0.5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestService_Compare(t *testing.T) {
	svc, _ := newTestService(t)

	deltas, err := svc.Compare("2024-06", "2024-07", 0.5)
	require.NoError(t, err)
	require.Len(t, deltas, 2)

	camden := deltas[0]
	assert.Equal(t, "E01", camden.AreaID)
	require.NotNil(t, camden.DeltaRiskIndex)
	assert.Equal(t, 2.0, *camden.DeltaRiskIndex)
	assert.Equal(t, 1, camden.DeltaCount)
	assert.Equal(t, domain.AlertWatch, camden.AlertLevel)

	self, err := svc.Compare("2024-07", "2024-07", 0.5)
	require.NoError(t, err)
	assert.Empty(t, self)
}

func TestService_Rankings(t *testing.T) {
	svc, _ := newTestService(t)

	top, err := svc.TopEnriched("2024-07", domain.MetricRiskIndex, false, 0.5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "E01", top[0].AreaID, "highest risk first")

	alerting, err := svc.TopEnriched("2024-07", domain.MetricRiskIndex, true, 0.5)
	require.NoError(t, err)
	require.Len(t, alerting, 1)
	assert.Equal(t, "E01", alerting[0].AreaID)

	topDeltas, err := svc.TopDeltas("2024-06", "2024-07", domain.MetricDeltaRiskIndex, false, 0.5)
	require.NoError(t, err)
	require.Len(t, topDeltas, 2)
	assert.Equal(t, "E01", topDeltas[0].AreaID)
}

func TestService_ApplySnapshotLastWriteWins(t *testing.T) {
	svc, snap := newTestService(t)

	stale := testSnapshot(t, snap.GeneratedAt.Add(-time.Hour))
	assert.False(t, svc.ApplySnapshot(stale))

	months, err := svc.Months()
	require.NoError(t, err)
	assert.Len(t, months, 7, "current dataset must survive a stale refresh")
}
