package aggregation

import (
	"context"
	"log/slog"
	"time"

	"github.com/aevon-lab/storefront-insights/internal/core/partition"
)

// Refresher is the part of the view store the scheduler drives.
type Refresher interface {
	RefreshAll(ctx context.Context) error
}

// PartitionEnsurer creates the monthly partitions the next events will land in.
type PartitionEnsurer interface {
	EnsureMonthly(ctx context.Context, first, now time.Time, monthsAhead int) ([]partition.Partition, error)
}

// Scheduler runs the periodic maintenance cycle: it first keeps monthly
// partitions created ahead of the clock, then refreshes every view.
// It is stateless: each tick independently recomputes from the event store.
type Scheduler struct {
	interval   time.Duration
	refresher  Refresher
	runOnStart bool

	partitions  PartitionEnsurer
	firstMonth  time.Time
	monthsAhead int
	now         func() time.Time
}

// NewScheduler creates a periodic refresh scheduler.
// A nil refresher disables view refreshes; partitions are still maintained.
func NewScheduler(interval time.Duration, refresher Refresher, runOnStart bool) *Scheduler {
	return &Scheduler{
		interval:   interval,
		refresher:  refresher,
		runOnStart: runOnStart,
		now:        time.Now,
	}
}

// WithPartitions makes every cycle create partitions from firstMonth through
// monthsAhead months past the current time.
func (s *Scheduler) WithPartitions(p PartitionEnsurer, firstMonth time.Time, monthsAhead int) *Scheduler {
	s.partitions = p
	s.firstMonth = firstMonth
	s.monthsAhead = monthsAhead
	return s
}

// Start begins periodic cycles.
// Runs until context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Scheduler] Starting maintenance scheduler",
		"interval", s.interval,
		"run_on_start", s.runOnStart,
		"refresh", s.refresher != nil,
		"partitions", s.partitions != nil,
	)

	// Partitions are checked right away; the refresh waits for a tick unless runOnStart.
	s.ensurePartitions(ctx)
	if s.runOnStart {
		s.refreshAll(ctx)
	}

	for {
		select {
		case <-ticker.C:
			s.ensurePartitions(ctx)
			s.refreshAll(ctx)
		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)")
			return nil
		}
	}
}

func (s *Scheduler) ensurePartitions(ctx context.Context) {
	if s.partitions == nil {
		return
	}
	if _, err := s.partitions.EnsureMonthly(ctx, s.firstMonth, s.now().UTC(), s.monthsAhead); err != nil {
		// retried next tick
		slog.Error("[Scheduler] Failed to create upcoming partitions", "error", err)
	}
}

func (s *Scheduler) refreshAll(ctx context.Context) {
	if s.refresher == nil {
		return
	}
	started := time.Now()
	if err := s.refresher.RefreshAll(ctx); err != nil {
		slog.Error("[Scheduler] Refresh cycle finished with failures",
			"error", err,
			"duration", time.Since(started),
		)
		return
	}
	slog.Info("[Scheduler] Refresh cycle complete", "duration", time.Since(started))
}
