package partition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	stored []Partition
	err    error
}

func (f *fakeCatalog) LoadPartitions(context.Context) ([]Partition, error) {
	return f.stored, nil
}

func (f *fakeCatalog) CreatePartition(_ context.Context, p Partition) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, p)
	return nil
}

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestMonthly(t *testing.T) {
	p := Monthly(time.Date(2019, 12, 31, 23, 59, 59, 0, time.UTC))
	require.Equal(t, "events_2019_12", p.ID)
	require.Equal(t, month(2019, 12), p.Start)
	require.Equal(t, month(2020, 1), p.End)
}

func TestManager_LocateBoundaries(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil)
	_, err := m.EnsureMonthly(ctx, month(2019, 10), month(2019, 12), 0)
	require.NoError(t, err)

	tests := []struct {
		name   string
		ts     time.Time
		wantID string
		outOfR bool
	}{
		{name: "first instant of first partition", ts: month(2019, 10), wantID: "events_2019_10"},
		{name: "middle of november", ts: time.Date(2019, 11, 15, 12, 0, 0, 0, time.UTC), wantID: "events_2019_11"},
		{name: "last nanosecond of october", ts: month(2019, 11).Add(-time.Nanosecond), wantID: "events_2019_10"},
		{name: "exact end boundary belongs to next", ts: month(2019, 12), wantID: "events_2019_12"},
		{name: "before first partition", ts: month(2019, 9), outOfR: true},
		{name: "after last partition", ts: month(2020, 1), outOfR: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := m.Locate(tc.ts)
			if tc.outOfR {
				require.ErrorIs(t, err, ErrOutOfRange)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantID, p.ID)
		})
	}
}

func TestManager_LocateGap(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil)
	require.NoError(t, m.Add(ctx, Monthly(month(2019, 10))))
	require.NoError(t, m.Add(ctx, Monthly(month(2019, 12))))

	_, err := m.Locate(time.Date(2019, 11, 2, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestManager_Overlapping(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil)
	_, err := m.EnsureMonthly(ctx, month(2019, 10), month(2020, 4), 0)
	require.NoError(t, err)

	got := m.Overlapping(time.Date(2019, 11, 20, 0, 0, 0, 0, time.UTC), month(2020, 1))
	require.Len(t, got, 2)
	require.Equal(t, "events_2019_11", got[0].ID)
	require.Equal(t, "events_2019_12", got[1].ID)

	// A range ending exactly on a partition start does not include it.
	got = m.Overlapping(month(2019, 10), month(2019, 11))
	require.Len(t, got, 1)
	require.Equal(t, "events_2019_10", got[0].ID)

	require.Empty(t, m.Overlapping(month(2021, 1), month(2021, 2)))
	require.Empty(t, m.Overlapping(month(2019, 11), month(2019, 11)))
	require.Len(t, m.All(), 7)
}

func TestManager_AddRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil)
	require.NoError(t, m.Add(ctx, Monthly(month(2019, 10))))

	// Identical partition is idempotent.
	require.NoError(t, m.Add(ctx, Monthly(month(2019, 10))))

	err := m.Add(ctx, Partition{ID: "odd", Start: time.Date(2019, 10, 15, 0, 0, 0, 0, time.UTC), End: month(2019, 11).AddDate(0, 0, 15)})
	require.ErrorIs(t, err, ErrOverlap)

	err = m.Add(ctx, Partition{ID: "inverted", Start: month(2020, 2), End: month(2020, 1)})
	require.Error(t, err)
}

func TestManager_EnsureMonthlyPersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{}
	m := NewManager(catalog)

	created, err := m.EnsureMonthly(ctx, month(2019, 10), time.Date(2019, 11, 5, 0, 0, 0, 0, time.UTC), 2)
	require.NoError(t, err)
	require.Len(t, created, 4) // Oct, Nov + two months ahead
	require.Len(t, catalog.stored, 4)

	// Second call is a no-op.
	created, err = m.EnsureMonthly(ctx, month(2019, 10), time.Date(2019, 11, 5, 0, 0, 0, 0, time.UTC), 2)
	require.NoError(t, err)
	require.Empty(t, created)

	reloaded := NewManager(catalog)
	require.NoError(t, reloaded.Load(ctx))
	p, err := reloaded.Locate(time.Date(2020, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "events_2020_01", p.ID)
}

func TestManager_CatalogFailureLeavesIndexUntouched(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{err: errors.New("ddl failed")}
	m := NewManager(catalog)

	err := m.Add(ctx, Monthly(month(2019, 10)))
	require.Error(t, err)

	_, err = m.Locate(month(2019, 10))
	require.ErrorIs(t, err, ErrOutOfRange)
}
