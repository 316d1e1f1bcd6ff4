// Package service is the caller-facing layer over the pure analytics engine.
// It owns the memoization policy the engine deliberately does not have:
// results are cached per (snapshot version, threshold), so a threshold
// slider hitting the same value twice never recomputes, while any dataset
// refresh invalidates everything by changing the version.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/XINRUIQI/CASA0028-Assessment01/internal/dataset"
	"github.com/XINRUIQI/CASA0028-Assessment01/internal/domain"
	"github.com/XINRUIQI/CASA0028-Assessment01/internal/observability"
)

// ErrNoDataset is returned by query methods before the first snapshot is
// loaded.
var ErrNoDataset = errors.New("no dataset loaded")

// Service answers panel queries against the current dataset snapshot.
type Service struct {
	store            *dataset.Store
	cache            *enrichCache
	metrics          *observability.Metrics
	logger           *slog.Logger
	defaultThreshold float64
}

// New creates a Service around a snapshot store.
func New(store *dataset.Store, metrics *observability.Metrics, logger *slog.Logger, cacheSize int, defaultThreshold float64) *Service {
	return &Service{
		store:            store,
		cache:            newEnrichCache(cacheSize),
		metrics:          metrics,
		logger:           logger,
		defaultThreshold: defaultThreshold,
	}
}

// DefaultThreshold returns the configured spike sensitivity fallback.
func (s *Service) DefaultThreshold() float64 {
	return s.defaultThreshold
}

// Months returns the ordered list of available months.
func (s *Service) Months() ([]string, error) {
	snap, ok := s.store.Snapshot()
	if !ok {
		return nil, ErrNoDataset
	}
	return snap.Months, nil
}

// Areas returns the area geometry passthrough, which may be empty.
func (s *Service) Areas() (json.RawMessage, error) {
	snap, ok := s.store.Snapshot()
	if !ok {
		return nil, ErrNoDataset
	}
	return snap.Areas, nil
}

// Enriched returns the full enriched panel at the given threshold.
func (s *Service) Enriched(threshold float64) ([]domain.EnrichedRecord, error) {
	enriched, _, err := s.enriched(threshold)
	return enriched, err
}

// MonthSlice returns the enriched records for one month. An unknown month
// yields an empty slice, not an error.
func (s *Service) MonthSlice(month string, threshold float64) ([]domain.EnrichedRecord, error) {
	enriched, _, err := s.enriched(threshold)
	if err != nil {
		return nil, err
	}
	return domain.FilterMonth(enriched, month), nil
}

// Compare returns the per-area deltas between two months.
func (s *Service) Compare(monthA, monthB string, threshold float64) ([]domain.DeltaRecord, error) {
	enriched, _, err := s.enriched(threshold)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	deltas := domain.ComparePeriods(enriched, monthA, monthB)
	s.observe("compare", start)
	return deltas, nil
}

// TopEnriched returns the top 10 records for one month by the given metric.
func (s *Service) TopEnriched(month, metric string, alertsOnly bool, threshold float64) ([]domain.EnrichedRecord, error) {
	slice, err := s.MonthSlice(month, threshold)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	top := domain.TopRanked(slice, metric, alertsOnly)
	s.observe("rank", start)
	return top, nil
}

// TopDeltas returns the top 10 delta records between two months by the given
// metric.
func (s *Service) TopDeltas(monthA, monthB, metric string, alertsOnly bool, threshold float64) ([]domain.DeltaRecord, error) {
	deltas, err := s.Compare(monthA, monthB, threshold)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	top := domain.TopRanked(deltas, metric, alertsOnly)
	s.observe("rank", start)
	return top, nil
}

// ApplySnapshot installs a new dataset snapshot under the store's
// last-write-wins rule and refreshes the snapshot gauges. Returns whether
// the snapshot was applied.
func (s *Service) ApplySnapshot(snap dataset.Snapshot) bool {
	if !s.store.Replace(snap) {
		s.metrics.SnapshotRejected.Inc()
		s.logger.Warn("snapshot rejected as stale",
			"version", snap.Version,
			"generated_at", snap.GeneratedAt,
		)
		return false
	}

	s.metrics.SnapshotRefreshes.Inc()
	s.metrics.SnapshotRecords.Set(float64(len(snap.Records)))
	s.logger.Info("snapshot applied",
		"version", snap.Version,
		"generated_at", snap.GeneratedAt,
		"months", len(snap.Months),
		"records", len(snap.Records),
	)

	s.updateAlertGauges(snap)
	return true
}

// CheckReadiness reports whether a dataset is available to serve queries.
func (s *Service) CheckReadiness(ctx context.Context) error {
	return s.store.CheckReadiness(ctx)
}

// enriched computes or recalls the enriched panel for the current snapshot.
func (s *Service) enriched(threshold float64) ([]domain.EnrichedRecord, dataset.Snapshot, error) {
	snap, ok := s.store.Snapshot()
	if !ok {
		return nil, dataset.Snapshot{}, ErrNoDataset
	}

	key := cacheKey(snap.Version, threshold)
	if cached, ok := s.cache.get(key); ok {
		s.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return cached, snap, nil
	}
	s.metrics.CacheLookups.WithLabelValues("miss").Inc()

	start := time.Now()
	enriched := domain.EnrichPanel(snap.Records, threshold)
	s.observe("enrich", start)

	s.cache.put(key, enriched)
	return enriched, snap, nil
}

// updateAlertGauges recounts the alert levels for the latest month at the
// default threshold. This also warms the cache for the most common query.
func (s *Service) updateAlertGauges(snap dataset.Snapshot) {
	if len(snap.Months) == 0 {
		return
	}
	latest := snap.Months[len(snap.Months)-1]

	slice, err := s.MonthSlice(latest, s.defaultThreshold)
	if err != nil {
		return
	}

	counts := map[domain.AlertLevel]int{}
	for _, r := range slice {
		counts[r.AlertLevel]++
	}
	for _, level := range []domain.AlertLevel{domain.AlertNone, domain.AlertWatch, domain.AlertWarning} {
		s.metrics.ActiveAlerts.WithLabelValues(string(level)).Set(float64(counts[level]))
	}
}

func (s *Service) observe(query string, start time.Time) {
	s.metrics.RecomputeTotal.WithLabelValues(query).Inc()
	s.metrics.RecomputeDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}
