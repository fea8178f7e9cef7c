package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	v1 "github.com/aevon-lab/storefront-insights/internal/api/v1"
	"github.com/aevon-lab/storefront-insights/internal/core/partition"
	"github.com/aevon-lab/storefront-insights/internal/core/storage"
)

// AppendEvent persists an event and populates IngestSeq.
// Returns storage.ErrDuplicate if (event_id, event_time) already exists and
// partition.ErrOutOfRange if no partition table covers event_time.
func (a *Adapter) AppendEvent(ctx context.Context, event *v1.Event) error {
	var ingestSeq int64
	err := a.stmtAppendEvent.QueryRowContext(ctx,
		event.ID,
		event.EventTime.UTC(),
		string(event.Type),
		event.ProductID,
		event.CategoryID,
		event.BrandID,
		event.Price,
		event.UserID,
		event.SessionID,
	).Scan(&ingestSeq)

	if errors.Is(err, sql.ErrNoRows) {
		// ON CONFLICT DO NOTHING - event already exists (duplicate)
		return storage.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to append event: %w", mapAppendError(err))
	}

	event.IngestSeq = ingestSeq

	slog.Debug("[Postgres] Appended event",
		"event_id", event.ID,
		"event_time", event.EventTime,
		"ingest_seq", ingestSeq)
	return nil
}

// HighWatermark returns the largest ingest_seq assigned so far.
func (a *Adapter) HighWatermark(ctx context.Context) (int64, error) {
	var seq int64
	if err := a.stmtHighWatermark.QueryRowContext(ctx).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read high watermark: %w", err)
	}
	return seq, nil
}

// ScanPartition streams every row of p with ingest_seq <= watermark to fn.
// The cursor is server-side, so memory stays flat regardless of partition size.
func (a *Adapter) ScanPartition(
	ctx context.Context,
	p partition.Partition,
	watermark int64,
	fn func(*v1.Event) error,
) error {
	rows, err := a.stmtScanPartition.QueryContext(ctx, p.Start, p.End, watermark)
	if err != nil {
		return fmt.Errorf("failed to scan partition %s: %w", p.ID, err)
	}
	defer rows.Close()

	var n int64
	for rows.Next() {
		evt, err := scanEventRow(rows)
		if err != nil {
			return err
		}
		if err := fn(evt); err != nil {
			return err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating partition %s: %w", p.ID, err)
	}

	slog.Debug("[Postgres] Scanned partition", "partition", p.ID, "rows", n, "watermark", watermark)
	return nil
}
