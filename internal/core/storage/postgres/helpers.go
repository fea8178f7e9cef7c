package postgres

import (
	"errors"
	"fmt"

	v1 "github.com/aevon-lab/storefront-insights/internal/api/v1"
	"github.com/aevon-lab/storefront-insights/internal/core/partition"
	"github.com/aevon-lab/storefront-insights/internal/core/storage"
	"github.com/lib/pq"
)

// SQLSTATE codes mapped to storage sentinels.
const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanEventRow scans a database row into an Event struct.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanEventRow(row scanner) (*v1.Event, error) {
	var evt v1.Event

	err := row.Scan(
		&evt.ID,
		&evt.EventTime,
		&evt.Type,
		&evt.ProductID,
		&evt.CategoryID,
		&evt.BrandID,
		&evt.Price,
		&evt.UserID,
		&evt.SessionID,
		&evt.IngestSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan event row: %w", err)
	}
	evt.EventTime = evt.EventTime.UTC()

	return &evt, nil
}

// mapAppendError translates driver errors of an insert into storage sentinels.
func mapAppendError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case codeCheckViolation:
		if pqErr.Constraint == "" {
			// "no partition of relation events found for row"
			return fmt.Errorf("%w: %s", partition.ErrOutOfRange, pqErr.Message)
		}
	case codeUniqueViolation:
		return fmt.Errorf("%w: %s", storage.ErrDuplicate, pqErr.Message)
	}
	return err
}
