package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	v1 "github.com/aevon-lab/storefront-insights/internal/api/v1"
	"github.com/aevon-lab/storefront-insights/internal/core/aggregation"
	"github.com/aevon-lab/storefront-insights/internal/core/dimension"
	"github.com/aevon-lab/storefront-insights/internal/core/partition"
	"github.com/aevon-lab/storefront-insights/internal/core/storage"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultWorkerCount    = 4
	defaultCatalogTimeout = 5 * time.Minute
)

// endOfTime bounds lookback scans that run up to the newest partition.
var endOfTime = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

// EngineParameter controls how much parallelism a single refresh uses.
type EngineParameter struct {
	// WorkerCount bounds the number of partitions scanned concurrently.
	WorkerCount int

	// CatalogTimeout bounds one shared dimension load. It is independent of
	// the deadline of any refresh waiting on that load.
	CatalogTimeout time.Duration
}

// DefaultEngineOptions returns safe defaults.
func DefaultEngineOptions() EngineParameter {
	return EngineParameter{
		WorkerCount:    defaultWorkerCount,
		CatalogTimeout: defaultCatalogTimeout,
	}
}

func (o EngineParameter) normalized() EngineParameter {
	n := o
	if n.WorkerCount <= 0 {
		n.WorkerCount = defaultWorkerCount
	}
	if n.CatalogTimeout <= 0 {
		n.CatalogTimeout = defaultCatalogTimeout
	}
	return n
}

// PartitionSource exposes partition boundaries for pruning.
type PartitionSource interface {
	All() []partition.Partition
	Overlapping(from, to time.Time) []partition.Partition
}

// ScanStats describes the input a computation actually consumed.
type ScanStats struct {
	Watermark  int64
	Partitions int
	Events     int64
	Orphaned   int64
	OutOfRange int64
}

// Result is the output of one view computation.
type Result struct {
	View     aggregation.ViewName
	Rows     any
	RowCount int
	Stats    ScanStats
}

// Engine computes each view from the event store plus dimensions.
// Every compute is read-only and deterministic for a given store state.
type Engine struct {
	events     storage.EventStore
	dimensions storage.DimensionStore
	partitions PartitionSource
	opts       EngineParameter
	loads      singleflight.Group
}

// NewEngine creates an aggregation engine.
func NewEngine(
	events storage.EventStore,
	dimensions storage.DimensionStore,
	partitions PartitionSource,
	opts EngineParameter,
) *Engine {
	return &Engine{
		events:     events,
		dimensions: dimensions,
		partitions: partitions,
		opts:       opts.normalized(),
	}
}

// Compute dispatches to the compute function of def.View.
// asOf anchors lookback windows; the store's high-watermark is captured first so
// rows appended while the computation runs are ignored.
func (e *Engine) Compute(ctx context.Context, def aggregation.ViewDefinition, asOf time.Time) (Result, error) {
	var (
		rows  any
		count int
		stats ScanStats
		err   error
	)

	switch def.View {
	case aggregation.ViewSalesFunnel:
		var out []aggregation.FunnelStage
		out, stats, err = e.SalesFunnel(ctx, def, asOf)
		rows, count = out, len(out)
	case aggregation.ViewTopConverting:
		var out []aggregation.ProductConversion
		out, stats, err = e.TopConverting(ctx, def, asOf)
		rows, count = out, len(out)
	case aggregation.ViewAbandonedCarts:
		var out []aggregation.AbandonedCart
		out, stats, err = e.AbandonedCarts(ctx, def, asOf)
		rows, count = out, len(out)
	case aggregation.ViewSessionAnalytics:
		var out []aggregation.SessionSegment
		out, stats, err = e.SessionAnalytics(ctx, def, asOf)
		rows, count = out, len(out)
	case aggregation.ViewBrandTrends:
		var out []aggregation.BrandDay
		out, stats, err = e.BrandTrends(ctx, def, asOf)
		rows, count = out, len(out)
	default:
		return Result{}, fmt.Errorf("no compute function for view %q", def.View)
	}
	if err != nil {
		return Result{}, err
	}

	return Result{View: def.View, Rows: rows, RowCount: count, Stats: stats}, nil
}

// SalesFunnel computes distinct-session counts per funnel stage.
func (e *Engine) SalesFunnel(ctx context.Context, def aggregation.ViewDefinition, asOf time.Time) ([]aggregation.FunnelStage, ScanStats, error) {
	fold, _, stats, err := run(ctx, e, def, asOf, aggregation.NewFunnelFold)
	if err != nil {
		return nil, stats, err
	}
	return fold.Stages(), stats, nil
}

// TopConverting ranks products by purchases per view.
func (e *Engine) TopConverting(ctx context.Context, def aggregation.ViewDefinition, asOf time.Time) ([]aggregation.ProductConversion, ScanStats, error) {
	fold, cat, stats, err := run(ctx, e, def, asOf, aggregation.NewProductFold)
	if err != nil {
		return nil, stats, err
	}
	return aggregation.TopConverting(fold, cat, def), stats, nil
}

// AbandonedCarts ranks products by the number of sessions that carted but never bought them.
func (e *Engine) AbandonedCarts(ctx context.Context, def aggregation.ViewDefinition, asOf time.Time) ([]aggregation.AbandonedCart, ScanStats, error) {
	fold, cat, stats, err := run(ctx, e, def, asOf, aggregation.NewAbandonmentFold)
	if err != nil {
		return nil, stats, err
	}
	return aggregation.AbandonedCarts(fold, cat, def), stats, nil
}

// SessionAnalytics derives sessions and users, then compares purchasers with non-purchasers.
func (e *Engine) SessionAnalytics(ctx context.Context, def aggregation.ViewDefinition, asOf time.Time) ([]aggregation.SessionSegment, ScanStats, error) {
	fold, _, stats, err := run(ctx, e, def, asOf, aggregation.NewSessionFold)
	if err != nil {
		return nil, stats, err
	}
	sessions := fold.Sessions()
	users := aggregation.Users(sessions)

	slog.Debug("[Engine] Derived sessions",
		"view", def.View,
		"sessions", len(sessions),
		"users", len(users),
	)
	return aggregation.SessionSegments(sessions, users), stats, nil
}

// BrandTrends buckets branded activity per UTC day.
func (e *Engine) BrandTrends(ctx context.Context, def aggregation.ViewDefinition, asOf time.Time) ([]aggregation.BrandDay, ScanStats, error) {
	since := lookbackStart(def, asOf)
	fold, cat, stats, err := run(ctx, e, def, asOf, func() *aggregation.TrendFold {
		return aggregation.NewTrendFold(since)
	})
	if err != nil {
		return nil, stats, err
	}
	return aggregation.BrandTrends(fold, cat), stats, nil
}

// Catalog loads the dimension tables. Concurrent callers share one load, which
// runs detached from every caller's context under CatalogTimeout; each caller
// stops waiting when its own ctx ends.
func (e *Engine) Catalog(ctx context.Context) (*dimension.Catalog, error) {
	ch := e.loads.DoChan("dimensions", func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.CatalogTimeout)
		defer cancel()

		started := time.Now()
		cat, err := e.dimensions.LoadDimensions(lctx)
		if err != nil {
			return nil, err
		}
		products, brands, categories := cat.Counts()
		slog.Info("[Engine] Loaded dimensions",
			"products", products,
			"brands", brands,
			"categories", categories,
			"duration", time.Since(started),
		)
		return cat, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load dimensions: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("load dimensions: %w", res.Err)
		}
		if res.Shared {
			slog.Debug("[Engine] Shared dimension load")
		}
		return res.Val.(*dimension.Catalog), nil
	}
}

func lookbackStart(def aggregation.ViewDefinition, asOf time.Time) time.Time {
	if def.Lookback <= 0 {
		return time.Time{}
	}
	return aggregation.DayBucket(asOf.Add(-def.Lookback))
}

// prune returns the partitions a view needs to read.
func (e *Engine) prune(def aggregation.ViewDefinition, asOf time.Time) []partition.Partition {
	since := lookbackStart(def, asOf)
	if since.IsZero() {
		return e.partitions.All()
	}
	return e.partitions.Overlapping(since, endOfTime)
}

// run captures the watermark, loads dimensions and folds every relevant partition.
func run[F aggregation.Fold[F]](
	ctx context.Context,
	e *Engine,
	def aggregation.ViewDefinition,
	asOf time.Time,
	newFold func() F,
) (F, *dimension.Catalog, ScanStats, error) {
	var zero F

	watermark, err := e.events.HighWatermark(ctx)
	if err != nil {
		return zero, nil, ScanStats{}, fmt.Errorf("read high-watermark: %w", err)
	}

	cat, err := e.Catalog(ctx)
	if err != nil {
		return zero, nil, ScanStats{}, err
	}

	parts := e.prune(def, asOf)
	slog.Debug("[Engine] Scanning partitions",
		"view", def.View,
		"partitions", len(parts),
		"watermark", watermark,
	)

	fold, stats, err := scanPartitions(ctx, e.events, parts, watermark, cat, e.opts.WorkerCount, newFold)
	if err != nil {
		return zero, nil, stats, err
	}

	if stats.Orphaned > 0 || stats.OutOfRange > 0 {
		slog.Warn("[Engine] Skipped events during aggregation",
			"view", def.View,
			"orphaned_events", stats.Orphaned,
			"out_of_range_events", stats.OutOfRange,
		)
	}
	return fold, cat, stats, nil
}

// scanPartitions folds each partition on its own worker, bounded by workers,
// then merges the per-partition folds.
func scanPartitions[F aggregation.Fold[F]](
	ctx context.Context,
	events storage.EventStore,
	parts []partition.Partition,
	watermark int64,
	cat *dimension.Catalog,
	workers int,
	newFold func() F,
) (F, ScanStats, error) {
	var (
		consumed, orphaned, outOfRange atomic.Int64
		folds                          = make([]F, len(parts))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range parts {
		i, p := i, p
		g.Go(func() error {
			fold := newFold()
			err := events.ScanPartition(gctx, p, watermark, func(evt *v1.Event) error {
				if !p.Contains(evt.EventTime) {
					outOfRange.Add(1)
					return nil
				}
				if missing := cat.Resolve(evt.ProductID, evt.BrandID, evt.CategoryID); missing != "" {
					orphaned.Add(1)
					slog.Debug("[Engine] Skipping event",
						"error", fmt.Errorf("%w: event %s references unknown %s",
							aggregation.ErrIncompleteDimensionJoin, evt.ID, missing),
						"partition", p.ID,
					)
					return nil
				}
				fold.Add(evt)
				consumed.Add(1)
				return nil
			})
			if err != nil {
				return fmt.Errorf("scan partition %s: %w", p.ID, err)
			}
			folds[i] = fold
			return nil
		})
	}

	stats := ScanStats{Watermark: watermark, Partitions: len(parts)}
	if err := g.Wait(); err != nil {
		var zero F
		return zero, stats, err
	}

	merged := newFold()
	for _, f := range folds {
		merged.Merge(f)
	}
	stats.Events = consumed.Load()
	stats.Orphaned = orphaned.Load()
	stats.OutOfRange = outOfRange.Load()
	return merged, stats, nil
}
