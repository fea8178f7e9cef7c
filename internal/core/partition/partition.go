package partition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/immutable"
)

var (
	// ErrOutOfRange is returned when no partition covers a timestamp.
	ErrOutOfRange = errors.New("no partition covers timestamp")

	// ErrOverlap is returned when a new partition would intersect an existing one.
	ErrOverlap = errors.New("partition overlaps an existing range")
)

// Partition is a contiguous, half-open time range [Start, End) of the event log.
type Partition struct {
	ID    string
	Start time.Time
	End   time.Time
}

// Contains reports whether ts falls inside [Start, End).
func (p Partition) Contains(ts time.Time) bool {
	return !ts.Before(p.Start) && ts.Before(p.End)
}

func (p Partition) same(o Partition) bool {
	return p.ID == o.ID && p.Start.Equal(o.Start) && p.End.Equal(o.End)
}

// Monthly returns the calendar-month partition (UTC) that holds ts.
// Monthly(2019-10-17T08:00Z) → {ID: "events_2019_10", Start: 2019-10-01, End: 2019-11-01}
func Monthly(ts time.Time) Partition {
	ts = ts.UTC()
	start := time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Partition{
		ID:    fmt.Sprintf("events_%04d_%02d", start.Year(), int(start.Month())),
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

// Catalog persists partition boundaries so they survive restarts.
type Catalog interface {
	LoadPartitions(ctx context.Context) ([]Partition, error)
	CreatePartition(ctx context.Context, p Partition) error
}

// descendingStart orders partitions newest first, so Seek(ts) lands on the
// latest partition whose start is <= ts.
type descendingStart struct{}

func (descendingStart) Compare(a, b time.Time) int { return b.Compare(a) }

type index = immutable.SortedMap[time.Time, Partition]

// Manager maps timestamps to partitions.
// Reads are lock-free against an immutable range index; writers serialize on mu
// and publish a new index with an atomic swap.
type Manager struct {
	catalog Catalog
	mu      sync.Mutex
	idx     atomic.Pointer[index]
}

// NewManager creates an empty manager. catalog may be nil for purely in-memory use.
func NewManager(catalog Catalog) *Manager {
	m := &Manager{catalog: catalog}
	m.idx.Store(immutable.NewSortedMap[time.Time, Partition](descendingStart{}))
	return m
}

// Load reads persisted partitions from the catalog into the index.
func (m *Manager) Load(ctx context.Context) error {
	if m.catalog == nil {
		return nil
	}
	parts, err := m.catalog.LoadPartitions(ctx)
	if err != nil {
		return fmt.Errorf("load partitions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range parts {
		if err := m.addLocked(p); err != nil {
			return err
		}
	}
	slog.Info("[PartitionManager] Loaded partitions", "count", len(parts))
	return nil
}

// Locate returns the partition covering ts, or ErrOutOfRange.
func (m *Manager) Locate(ts time.Time) (Partition, error) {
	itr := m.idx.Load().Iterator()
	itr.Seek(ts)
	if itr.Done() {
		return Partition{}, fmt.Errorf("%w: %s", ErrOutOfRange, ts.UTC().Format(time.RFC3339))
	}
	_, p, _ := itr.Next()
	if !p.Contains(ts) {
		return Partition{}, fmt.Errorf("%w: %s", ErrOutOfRange, ts.UTC().Format(time.RFC3339))
	}
	return p, nil
}

// Overlapping returns, oldest first, every partition intersecting [from, to).
func (m *Manager) Overlapping(from, to time.Time) []Partition {
	if !to.After(from) {
		return nil
	}
	itr := m.idx.Load().Iterator()
	itr.Seek(to)

	var out []Partition
	for !itr.Done() {
		_, p, _ := itr.Next()
		if !p.Start.Before(to) {
			continue
		}
		if !p.End.After(from) {
			break
		}
		out = append(out, p)
	}
	reverse(out)
	return out
}

// All returns every known partition, oldest first.
func (m *Manager) All() []Partition {
	idx := m.idx.Load()
	out := make([]Partition, 0, idx.Len())
	itr := idx.Iterator()
	itr.First()
	for !itr.Done() {
		_, p, _ := itr.Next()
		out = append(out, p)
	}
	reverse(out)
	return out
}

// Add registers p, persisting it through the catalog first.
// Adding an identical partition twice is a no-op.
func (m *Manager) Add(ctx context.Context, p Partition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.idx.Load().Get(p.Start); ok && existing.same(p) {
		return nil
	}
	if err := m.checkLocked(p); err != nil {
		return err
	}
	if m.catalog != nil {
		if err := m.catalog.CreatePartition(ctx, p); err != nil {
			return fmt.Errorf("create partition %s: %w", p.ID, err)
		}
	}
	m.idx.Store(m.idx.Load().Set(p.Start, p))
	return nil
}

// EnsureMonthly creates every monthly partition from the month holding first
// through monthsAhead months past now. Existing months are left untouched.
func (m *Manager) EnsureMonthly(ctx context.Context, first, now time.Time, monthsAhead int) ([]Partition, error) {
	if monthsAhead < 0 {
		monthsAhead = 0
	}
	last := Monthly(now).Start.AddDate(0, monthsAhead, 0)

	var created []Partition
	for p := Monthly(first); !p.Start.After(last); p = Monthly(p.End) {
		if _, err := m.Locate(p.Start); err == nil {
			continue
		}
		if err := m.Add(ctx, p); err != nil {
			return created, err
		}
		created = append(created, p)
	}

	if len(created) > 0 {
		slog.Info("[PartitionManager] Created partitions ahead of data",
			"count", len(created),
			"first", created[0].ID,
			"last", created[len(created)-1].ID,
		)
	}
	return created, nil
}

func (m *Manager) addLocked(p Partition) error {
	if existing, ok := m.idx.Load().Get(p.Start); ok && existing.same(p) {
		return nil
	}
	if err := m.checkLocked(p); err != nil {
		return err
	}
	m.idx.Store(m.idx.Load().Set(p.Start, p))
	return nil
}

func (m *Manager) checkLocked(p Partition) error {
	if p.ID == "" {
		return fmt.Errorf("partition id must not be empty")
	}
	if !p.End.After(p.Start) {
		return fmt.Errorf("partition %s: end must be after start", p.ID)
	}
	if clash := m.Overlapping(p.Start, p.End); len(clash) > 0 {
		return fmt.Errorf("%w: %s intersects %s", ErrOverlap, p.ID, clash[0].ID)
	}
	return nil
}

func reverse(ps []Partition) {
	for i, j := 0, len(ps)-1; i < j; i, j = i+1, j-1 {
		ps[i], ps[j] = ps[j], ps[i]
	}
}
