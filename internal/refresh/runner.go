// Package refresh consumes dataset snapshot messages and applies them to the
// running service, so the panel can pick up a new month without a restart.
package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/XINRUIQI/CASA0028-Assessment01/internal/dataset"
	"github.com/XINRUIQI/CASA0028-Assessment01/internal/observability"
)

// Message is one snapshot refresh message from the source.
type Message struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	// Commit acknowledges the message once it has been handled. May be nil.
	Commit func(ctx context.Context) error
}

// Source fetches refresh messages. Fetch blocks until a message arrives, the
// context is cancelled, or the source fails.
type Source interface {
	Fetch(ctx context.Context) (Message, error)
}

// Applier installs a validated snapshot. Reports whether it was accepted.
type Applier interface {
	ApplySnapshot(snap dataset.Snapshot) bool
}

// Runner drives the fetch-parse-apply loop.
type Runner struct {
	source  Source
	applier Applier
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRunner creates a Runner over a message source.
func NewRunner(source Source, applier Applier, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	return &Runner{
		source:  source,
		applier: applier,
		logger:  logger,
		metrics: metrics,
	}
}

// Run executes the refresh loop until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("snapshot refresh started")
	r.metrics.RefreshRunning.Set(1)
	defer r.metrics.RefreshRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("snapshot refresh stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !r.processMessage(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processMessage handles one fetch-parse-apply cycle. Returns false if the
// loop should stop.
func (r *Runner) processMessage(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	msg, err := r.source.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		r.logger.Error("fetch refresh message failed", "error", err)
		return r.backoffOrStop(ctx, backoff, maxBackoff)
	}
	*backoff = 200 * time.Millisecond

	snap, err := dataset.ParseSnapshot(msg.Value)
	if err != nil {
		// A malformed snapshot is an upstream defect. Skip it and move on,
		// keeping whatever dataset is currently serving.
		r.logger.Warn("refresh message rejected",
			"error", err,
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
		r.metrics.SnapshotParseErrors.Inc()
		r.commit(ctx, msg)
		return true
	}

	applied := r.applier.ApplySnapshot(snap)
	r.logger.Info("refresh message handled",
		"applied", applied,
		"version", snap.Version,
		"offset", msg.Offset,
	)
	r.commit(ctx, msg)
	return true
}

// backoffOrStop sleeps with the current backoff and advances it. Returns
// false if the loop should stop.
func (r *Runner) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

func (r *Runner) commit(ctx context.Context, msg Message) {
	if msg.Commit == nil {
		return
	}
	if err := msg.Commit(ctx); err != nil {
		r.logger.Warn("commit refresh offset failed", "error", err,
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
