package storage

import (
	"context"
	"errors"
	"time"

	v1 "github.com/aevon-lab/storefront-insights/internal/api/v1"
	"github.com/aevon-lab/storefront-insights/internal/core/dimension"
	"github.com/aevon-lab/storefront-insights/internal/core/partition"
)

// ErrDuplicate is returned when an event with the same event_id already exists.
var ErrDuplicate = errors.New("event already exists")

// EventStore is the append-only, time-partitioned event log.
type EventStore interface {
	// AppendEvent persists an event and populates its IngestSeq.
	// Returns partition.ErrOutOfRange when no partition covers EventTime
	// and ErrDuplicate when the event_id was already stored.
	AppendEvent(ctx context.Context, event *v1.Event) error

	// HighWatermark returns the largest ingest_seq assigned so far (0 when empty).
	// A refresh captures it at start; rows above it are invisible to that refresh.
	HighWatermark(ctx context.Context) (int64, error)

	// ScanPartition streams every event of one partition with ingest_seq <= watermark.
	// Rows are delivered in no particular order. Returning an error from fn stops the scan.
	ScanPartition(
		ctx context.Context,
		p partition.Partition,
		watermark int64,
		fn func(*v1.Event) error,
	) error
}

// DimensionStore loads the reference tables events are joined against.
type DimensionStore interface {
	LoadDimensions(ctx context.Context) (*dimension.Catalog, error)
}

// ViewState is the durable part of a materialized view: when it was last published.
// View contents themselves are recomputed from the event log after a restart.
type ViewState struct {
	View        string
	AsOf        time.Time
	Version     int64
	Fingerprint string
	UpdatedAt   time.Time
}

// ViewStateStore persists per-view publish markers.
type ViewStateStore interface {
	LoadViewStates(ctx context.Context) ([]ViewState, error)
	SaveViewState(ctx context.Context, state ViewState) error
}
