package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	v1 "github.com/aevon-lab/storefront-insights/internal/api/v1"
	"github.com/aevon-lab/storefront-insights/internal/core/partition"
	"github.com/aevon-lab/storefront-insights/internal/core/storage"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var october = partition.Monthly(time.Date(2019, 10, 1, 0, 0, 0, 0, time.UTC))

func testEvent(id string) *v1.Event {
	return &v1.Event{
		ID:        id,
		EventTime: time.Date(2019, 10, 5, 9, 30, 0, 0, time.UTC),
		Type:      v1.EventCart,
		ProductID: 42,
		BrandID:   3,
		Price:     decimal.RequireFromString("249.90"),
		UserID:    7,
		SessionID: "s-1",
	}
}

func expectAppend(mock sqlmock.Sqlmock, e *v1.Event) *sqlmock.ExpectedQuery {
	return mock.ExpectQuery(regexp.QuoteMeta(queryAppendEvent)).
		WithArgs(
			e.ID,
			e.EventTime,
			string(e.Type),
			e.ProductID,
			e.CategoryID,
			e.BrandID,
			e.Price,
			e.UserID,
			e.SessionID,
		)
}

func TestAdapter_AppendEvent(t *testing.T) {
	tests := []struct {
		name       string
		mockResult func(mock sqlmock.Sqlmock, event *v1.Event)
		assertions func(t *testing.T, event *v1.Event, err error)
	}{
		{
			name: "success sets ingest seq",
			mockResult: func(mock sqlmock.Sqlmock, event *v1.Event) {
				expectAppend(mock, event).
					WillReturnRows(sqlmock.NewRows([]string{"ingest_seq"}).AddRow(int64(42)))
			},
			assertions: func(t *testing.T, event *v1.Event, err error) {
				require.NoError(t, err)
				require.Equal(t, int64(42), event.IngestSeq)
			},
		},
		{
			name: "conflict maps to ErrDuplicate",
			mockResult: func(mock sqlmock.Sqlmock, event *v1.Event) {
				expectAppend(mock, event).WillReturnRows(sqlmock.NewRows([]string{"ingest_seq"}))
			},
			assertions: func(t *testing.T, event *v1.Event, err error) {
				require.ErrorIs(t, err, storage.ErrDuplicate)
				require.Equal(t, int64(0), event.IngestSeq)
			},
		},
		{
			name: "missing partition maps to ErrOutOfRange",
			mockResult: func(mock sqlmock.Sqlmock, event *v1.Event) {
				expectAppend(mock, event).WillReturnError(&pq.Error{
					Code:    "23514",
					Message: `no partition of relation "events" found for row`,
				})
			},
			assertions: func(t *testing.T, event *v1.Event, err error) {
				require.ErrorIs(t, err, partition.ErrOutOfRange)
			},
		},
		{
			name: "named check constraint is not a routing failure",
			mockResult: func(mock sqlmock.Sqlmock, event *v1.Event) {
				expectAppend(mock, event).WillReturnError(&pq.Error{
					Code:       "23514",
					Constraint: "events_price_check",
					Message:    "new row violates check constraint",
				})
			},
			assertions: func(t *testing.T, event *v1.Event, err error) {
				require.Error(t, err)
				require.NotErrorIs(t, err, partition.ErrOutOfRange)
			},
		},
		{
			name: "unique violation maps to ErrDuplicate",
			mockResult: func(mock sqlmock.Sqlmock, event *v1.Event) {
				expectAppend(mock, event).WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key"})
			},
			assertions: func(t *testing.T, event *v1.Event, err error) {
				require.ErrorIs(t, err, storage.ErrDuplicate)
			},
		},
		{
			name: "other errors are wrapped",
			mockResult: func(mock sqlmock.Sqlmock, event *v1.Event) {
				expectAppend(mock, event).WillReturnError(errors.New("connection reset"))
			},
			assertions: func(t *testing.T, event *v1.Event, err error) {
				require.ErrorContains(t, err, "failed to append event")
				require.NotErrorIs(t, err, storage.ErrDuplicate)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adapter, mock, db := newMockAdapter(t)
			defer db.Close()

			event := testEvent("evt-1")
			tc.mockResult(mock, event)

			err := adapter.AppendEvent(context.Background(), event)
			tc.assertions(t, event, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_HighWatermark(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(queryHighWatermark)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(1234)))

	seq, err := adapter.HighWatermark(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1234), seq)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_ScanPartition(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	at := time.Date(2019, 10, 5, 9, 30, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(queryScanPartition)).
		WithArgs(october.Start, october.End, int64(500)).
		WillReturnRows(sqlmock.NewRows(eventRowColumns()).
			AddRow("evt-1", at, "view", int64(42), int64(0), int64(3), "249.90", int64(7), "s-1", int64(11)).
			AddRow("evt-2", at.Add(time.Minute), "purchase", int64(42), int64(5), int64(3), "249.90", int64(7), "s-1", int64(12)),
		).RowsWillBeClosed()

	var got []*v1.Event
	err := adapter.ScanPartition(context.Background(), october, 500, func(e *v1.Event) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, v1.EventView, got[0].Type)
	require.Equal(t, int64(11), got[0].IngestSeq)
	require.True(t, got[1].Price.Equal(decimal.RequireFromString("249.9")))
	require.Equal(t, int64(5), got[1].CategoryID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_ScanPartitionStopsOnCallbackError(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	at := time.Date(2019, 10, 5, 9, 30, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(queryScanPartition)).
		WithArgs(october.Start, october.End, int64(10)).
		WillReturnRows(sqlmock.NewRows(eventRowColumns()).
			AddRow("evt-1", at, "view", int64(42), int64(0), int64(0), "1.00", int64(7), "s-1", int64(1)).
			AddRow("evt-2", at, "view", int64(42), int64(0), int64(0), "1.00", int64(7), "s-1", int64(2)),
		).RowsWillBeClosed()

	stop := errors.New("stop")
	calls := 0
	err := adapter.ScanPartition(context.Background(), october, 10, func(*v1.Event) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, 1, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_CreatePartition(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		`CREATE TABLE IF NOT EXISTS "events_2019_10" PARTITION OF events FOR VALUES FROM ('2019-10-01T00:00:00Z') TO ('2019-11-01T00:00:00Z')`,
	)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(queryInsertPartition)).
		WithArgs("events_2019_10", october.Start, october.End).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, adapter.CreatePartition(context.Background(), october))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_CreatePartitionRollsBackOnFailure(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").
		WillReturnError(errors.New(`partition "events_2019_10" would overlap partition "events_legacy"`))
	mock.ExpectRollback()

	err := adapter.CreatePartition(context.Background(), october)
	require.ErrorContains(t, err, "failed to create partition table events_2019_10")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_LoadPartitions(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	nov := partition.Monthly(october.End)
	mock.ExpectQuery(regexp.QuoteMeta(queryLoadPartitions)).
		WillReturnRows(sqlmock.NewRows([]string{"partition_id", "range_start", "range_end"}).
			AddRow(october.ID, october.Start, october.End).
			AddRow(nov.ID, nov.Start, nov.End))

	parts, err := adapter.LoadPartitions(context.Background())
	require.NoError(t, err)
	require.Equal(t, []partition.Partition{october, nov}, parts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_LoadDimensions(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(queryLoadBrands)).
		WillReturnRows(sqlmock.NewRows([]string{"brand_id", "brand_name"}).
			AddRow(int64(3), "samsung"))
	mock.ExpectQuery(regexp.QuoteMeta(queryLoadCategories)).
		WillReturnRows(sqlmock.NewRows([]string{"category_id", "category_code", "category_level_1", "category_level_2", "category_level_3"}).
			AddRow(int64(5), "electronics.smartphone", "electronics", "smartphone", ""))
	mock.ExpectQuery(regexp.QuoteMeta(queryLoadProducts)).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "category_id", "brand_id"}).
			AddRow(int64(42), int64(5), int64(3)))
	mock.ExpectRollback()

	cat, err := adapter.LoadDimensions(context.Background())
	require.NoError(t, err)

	products, brands, categories := cat.Counts()
	require.Equal(t, 1, products)
	require.Equal(t, 1, brands)
	require.Equal(t, 1, categories)

	p, ok := cat.Product(42)
	require.True(t, ok)
	require.Equal(t, int64(3), p.BrandID)
	require.Empty(t, cat.Resolve(42, 3, 5))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_LoadDimensionsQueryError(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(queryLoadBrands)).WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	_, err := adapter.LoadDimensions(context.Background())
	require.ErrorContains(t, err, "failed to load brands")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_ViewState(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	asOf := time.Date(2019, 11, 1, 8, 0, 0, 0, time.UTC)
	st := storage.ViewState{View: "sales_funnel", AsOf: asOf, Version: 3, Fingerprint: "default", UpdatedAt: asOf}

	mock.ExpectExec(regexp.QuoteMeta(queryUpsertViewState)).
		WithArgs(st.View, st.AsOf, st.Version, st.Fingerprint, st.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(queryLoadViewStates)).
		WillReturnRows(sqlmock.NewRows([]string{"view_name", "as_of", "version", "fingerprint", "updated_at"}).
			AddRow(st.View, st.AsOf, st.Version, st.Fingerprint, st.UpdatedAt))

	require.NoError(t, adapter.SaveViewState(context.Background(), st))

	states, err := adapter.LoadViewStates(context.Background())
	require.NoError(t, err)
	require.Equal(t, []storage.ViewState{st}, states)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_CloseReturnsDBCloseError(t *testing.T) {
	adapter, mock, _ := newMockAdapter(t)

	dbCloseErr := errors.New("db close failed")
	mock.ExpectClose().WillReturnError(dbCloseErr)

	err := adapter.Close()
	require.Error(t, err)
	require.ErrorContains(t, err, "failed to close database")
	require.ErrorIs(t, err, dbCloseErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPartitionDDL_QuotesIdentifier(t *testing.T) {
	p := partition.Partition{ID: `events"; DROP TABLE events; --`, Start: october.Start, End: october.End}
	ddl := partitionDDL(p)
	require.Contains(t, ddl, `"events""; DROP TABLE events; --"`)
}

func TestMapAppendError_PassThrough(t *testing.T) {
	plain := fmt.Errorf("dial: %w", sql.ErrConnDone)
	require.ErrorIs(t, mapAppendError(plain), sql.ErrConnDone)
}

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	adapter := &Adapter{
		db:                  db,
		stmtAppendEvent:     mustPrepareStmt(t, db, mock, queryAppendEvent),
		stmtHighWatermark:   mustPrepareStmt(t, db, mock, queryHighWatermark),
		stmtScanPartition:   mustPrepareStmt(t, db, mock, queryScanPartition),
		stmtUpsertViewState: mustPrepareStmt(t, db, mock, queryUpsertViewState),
	}

	return adapter, mock, db
}

func mustPrepareStmt(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock, query string) *sql.Stmt {
	t.Helper()

	mock.ExpectPrepare(regexp.QuoteMeta(query))
	stmt, err := db.Prepare(query)
	require.NoError(t, err)

	return stmt
}

func eventRowColumns() []string {
	return []string{
		"event_id",
		"event_time",
		"event_type",
		"product_id",
		"category_id",
		"brand_id",
		"price",
		"user_id",
		"user_session",
		"ingest_seq",
	}
}
