package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aevon-lab/storefront-insights/internal/core/partition"
	"github.com/lib/pq"
)

// LoadPartitions implements partition.Catalog.
func (a *Adapter) LoadPartitions(ctx context.Context) ([]partition.Partition, error) {
	rows, err := a.db.QueryContext(ctx, queryLoadPartitions)
	if err != nil {
		return nil, fmt.Errorf("failed to query partitions: %w", err)
	}
	defer rows.Close()

	var out []partition.Partition
	for rows.Next() {
		var p partition.Partition
		if err := rows.Scan(&p.ID, &p.Start, &p.End); err != nil {
			return nil, fmt.Errorf("failed to scan partition row: %w", err)
		}
		p.Start, p.End = p.Start.UTC(), p.End.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating partitions: %w", err)
	}
	return out, nil
}

// CreatePartition implements partition.Catalog: it attaches a new partition
// table to events and records its bounds, in one transaction.
// Overlap checks happen in the partition manager; postgres rejects any that slip through.
func (a *Adapter) CreatePartition(ctx context.Context, p partition.Partition) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, partitionDDL(p)); err != nil {
		return fmt.Errorf("failed to create partition table %s: %w", p.ID, err)
	}
	if _, err := tx.ExecContext(ctx, queryInsertPartition, p.ID, p.Start, p.End); err != nil {
		return fmt.Errorf("failed to record partition %s: %w", p.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit partition %s: %w", p.ID, err)
	}

	slog.Info("[Postgres] Created partition",
		"partition", p.ID,
		"start", p.Start,
		"end", p.End)
	return nil
}

func partitionDDL(p partition.Partition) string {
	return fmt.Sprintf(createPartitionDDL,
		pq.QuoteIdentifier(p.ID),
		pq.QuoteLiteral(p.Start.UTC().Format(time.RFC3339Nano)),
		pq.QuoteLiteral(p.End.UTC().Format(time.RFC3339Nano)),
	)
}
