package viewstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	engine "github.com/aevon-lab/storefront-insights/internal/aggregation"
	"github.com/aevon-lab/storefront-insights/internal/core/aggregation"
	"github.com/aevon-lab/storefront-insights/internal/core/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrRefreshInProgress is returned when a refresh is requested for a view
	// that is already refreshing. Trigger and TriggerAll treat it as a no-op.
	ErrRefreshInProgress = errors.New("refresh already in progress")

	// ErrRefreshTimeout is returned when a refresh exceeds its timeout.
	// The previously published snapshot stays in place.
	ErrRefreshTimeout = errors.New("refresh timed out")

	ErrUnknownView = errors.New("unknown view")
)

const defaultTimeout = 10 * time.Minute

// State is the lifecycle position of a view.
type State string

const (
	StateStale      State = "stale"
	StateRefreshing State = "refreshing"
	StatePublished  State = "published"
)

// Snapshot is the complete, immutable output of one refresh.
// Readers must treat Rows as read-only; a snapshot is never modified after publish.
type Snapshot struct {
	View        aggregation.ViewName
	Version     int64
	RefreshID   string
	AsOf        time.Time
	Fingerprint string
	Rows        any
	RowCount    int
	Stats       engine.ScanStats
	Duration    time.Duration
}

// Status describes a view for operators.
type Status struct {
	View           aggregation.ViewName `json:"view"`
	State          State                `json:"state"`
	AsOf           *time.Time           `json:"as_of,omitempty"`
	Version        int64                `json:"version"`
	Fingerprint    string               `json:"fingerprint,omitempty"`
	Rows           int                  `json:"rows"`
	OrphanedEvents int64                `json:"orphaned_events"`
	LastError      string               `json:"last_error,omitempty"`
	LastErrorClass string               `json:"last_error_class,omitempty"`
	LastDuration   string               `json:"last_duration,omitempty"`
}

// Computer produces the rows of a view.
type Computer interface {
	Compute(ctx context.Context, def aggregation.ViewDefinition, asOf time.Time) (engine.Result, error)
}

type view struct {
	name     aggregation.ViewName
	snapshot atomic.Pointer[Snapshot]

	mu             sync.Mutex
	state          State
	persistedAsOf  time.Time
	persistedVer   int64
	lastError      string
	lastErrorClass string
	lastDuration   time.Duration
}

// Options configures a Store.
type Options struct {
	// Timeout applies to refreshes whose definition sets none.
	Timeout time.Duration
	// Now is the clock used for as_of; defaults to time.Now.
	Now func() time.Time
	// Context bounds refreshes started from the HTTP handlers; defaults to
	// context.Background. Cancel it on shutdown, then call Wait.
	Context context.Context
}

// Store holds the published snapshot of every view.
// Reads are lock-free pointer loads; each view allows one refresh at a time.
type Store struct {
	computer    Computer
	definitions aggregation.DefinitionRepository
	states      storage.ViewStateStore
	timeout     time.Duration
	now         func() time.Time
	views       map[aggregation.ViewName]*view

	base context.Context
	bg   sync.WaitGroup
}

// New creates a store with every view Stale.
func New(
	computer Computer,
	definitions aggregation.DefinitionRepository,
	states storage.ViewStateStore,
	opts Options,
) *Store {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	s := &Store{
		computer:    computer,
		definitions: definitions,
		states:      states,
		timeout:     opts.Timeout,
		now:         opts.Now,
		base:        opts.Context,
		views:       make(map[aggregation.ViewName]*view, len(aggregation.AllViews)),
	}
	for _, name := range aggregation.AllViews {
		s.views[name] = &view{name: name, state: StateStale}
	}
	return s
}

// Restore loads the as_of markers persisted before the last shutdown.
// Contents are not persisted, so views stay Stale until their first refresh.
func (s *Store) Restore(ctx context.Context) error {
	states, err := s.states.LoadViewStates(ctx)
	if err != nil {
		return fmt.Errorf("load view states: %w", err)
	}
	for _, st := range states {
		v, ok := s.views[aggregation.ViewName(st.View)]
		if !ok {
			slog.Warn("[ViewStore] Ignoring state for unknown view", "view", st.View)
			continue
		}
		v.mu.Lock()
		v.persistedAsOf = st.AsOf
		v.persistedVer = st.Version
		v.mu.Unlock()
	}
	slog.Info("[ViewStore] Restored view states", "count", len(states))
	return nil
}

// Current returns the published snapshot of a view, or nil if it never completed a refresh.
// It never blocks on a refresh in progress.
func (s *Store) Current(name aggregation.ViewName) (*Snapshot, error) {
	v, ok := s.views[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, name)
	}
	return v.snapshot.Load(), nil
}

// Refresh recomputes one view and atomically publishes the result.
// Returns ErrRefreshInProgress if the view is already refreshing.
func (s *Store) Refresh(ctx context.Context, name aggregation.ViewName) (*Snapshot, error) {
	v, ok := s.views[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, name)
	}

	prevVersion, err := v.begin()
	if err != nil {
		RefreshTotal.WithLabelValues(string(name), outcomeSkipped).Inc()
		return nil, err
	}

	def := s.definitions.Get(name)
	timeout := def.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}

	refreshID := uuid.NewString()
	asOf := s.now().UTC()
	started := time.Now()

	slog.Info("[ViewStore] Refresh started",
		"view", name,
		"refresh_id", refreshID,
		"as_of", asOf,
		"timeout", timeout,
	)

	rctx, cancel := context.WithTimeout(ctx, timeout)
	result, err := s.computer.Compute(rctx, def, asOf)
	timedOut := errors.Is(rctx.Err(), context.DeadlineExceeded)
	cancel()
	elapsed := time.Since(started)

	if err == nil && timedOut {
		// a result delivered past the deadline is discarded
		err = context.DeadlineExceeded
	}

	if err != nil {
		outcome, class := outcomeFailure, "compute_error"
		if timedOut {
			err = fmt.Errorf("%w: view %s after %s: %v", ErrRefreshTimeout, name, timeout, err)
			outcome, class = outcomeTimeout, "timeout"
		}
		v.fail(err, class, elapsed)
		RefreshTotal.WithLabelValues(string(name), outcome).Inc()
		RefreshDuration.WithLabelValues(string(name), outcome).Observe(elapsed.Seconds())

		slog.Error("[ViewStore] Refresh failed, keeping previous snapshot",
			"view", name,
			"refresh_id", refreshID,
			"error", err,
			"duration", elapsed,
		)
		return nil, err
	}

	snap := &Snapshot{
		View:        name,
		Version:     prevVersion + 1,
		RefreshID:   refreshID,
		AsOf:        asOf,
		Fingerprint: def.Fingerprint,
		Rows:        result.Rows,
		RowCount:    result.RowCount,
		Stats:       result.Stats,
		Duration:    elapsed,
	}

	if err := s.states.SaveViewState(ctx, storage.ViewState{
		View:        string(name),
		AsOf:        asOf,
		Version:     snap.Version,
		Fingerprint: snap.Fingerprint,
		UpdatedAt:   time.Now().UTC(),
	}); err != nil {
		// The snapshot is still valid; only the restart marker is behind.
		slog.Error("[ViewStore] Failed to persist view state",
			"view", name,
			"refresh_id", refreshID,
			"error", err,
		)
	}

	v.publish(snap)

	RefreshTotal.WithLabelValues(string(name), outcomeSuccess).Inc()
	RefreshDuration.WithLabelValues(string(name), outcomeSuccess).Observe(elapsed.Seconds())
	OrphanedEvents.WithLabelValues(string(name)).Set(float64(result.Stats.Orphaned))
	SnapshotAsOf.WithLabelValues(string(name)).Set(float64(asOf.Unix()))
	SnapshotRows.WithLabelValues(string(name)).Set(float64(result.RowCount))

	slog.Info("[ViewStore] Snapshot published",
		"view", name,
		"refresh_id", refreshID,
		"version", snap.Version,
		"rows", snap.RowCount,
		"events", result.Stats.Events,
		"orphaned_events", result.Stats.Orphaned,
		"watermark", result.Stats.Watermark,
		"duration", elapsed,
	)
	return snap, nil
}

// Trigger refreshes a view, treating an in-progress refresh as success.
func (s *Store) Trigger(ctx context.Context, name aggregation.ViewName) error {
	_, err := s.Refresh(ctx, name)
	if errors.Is(err, ErrRefreshInProgress) {
		slog.Info("[ViewStore] Refresh already running, skipping", "view", name)
		return nil
	}
	return err
}

// RefreshAll refreshes every view concurrently. A failing view does not stop the others;
// all failures are joined into the returned error.
func (s *Store) RefreshAll(ctx context.Context) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, name := range aggregation.AllViews {
		name := name
		g.Go(func() error {
			if err := s.Trigger(ctx, name); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Wait blocks until every refresh started through the HTTP handlers has returned.
func (s *Store) Wait() {
	s.bg.Wait()
}

// background runs fn on a tracked goroutine under the store's base context.
func (s *Store) background(fn func(ctx context.Context)) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		fn(s.base)
	}()
}

// Status reports every view in refresh order.
func (s *Store) Status() []Status {
	out := make([]Status, 0, len(aggregation.AllViews))
	for _, name := range aggregation.AllViews {
		out = append(out, s.views[name].status())
	}
	return out
}

// begin moves the view to Refreshing and returns the version it will supersede.
func (v *view) begin() (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateRefreshing {
		return 0, fmt.Errorf("%w: %s", ErrRefreshInProgress, v.name)
	}
	v.state = StateRefreshing

	if snap := v.snapshot.Load(); snap != nil {
		return snap.Version, nil
	}
	return v.persistedVer, nil
}

func (v *view) publish(snap *Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snapshot.Store(snap)
	v.state = StatePublished
	v.persistedAsOf = snap.AsOf
	v.persistedVer = snap.Version
	v.lastError, v.lastErrorClass = "", ""
	v.lastDuration = snap.Duration
}

// fail returns the view to its state before the refresh began.
func (v *view) fail(err error, class string, elapsed time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.snapshot.Load() != nil {
		v.state = StatePublished
	} else {
		v.state = StateStale
	}
	v.lastError = err.Error()
	v.lastErrorClass = class
	v.lastDuration = elapsed
}

func (v *view) status() Status {
	v.mu.Lock()
	defer v.mu.Unlock()

	st := Status{
		View:           v.name,
		State:          v.state,
		Version:        v.persistedVer,
		LastError:      v.lastError,
		LastErrorClass: v.lastErrorClass,
	}
	if v.lastDuration > 0 {
		st.LastDuration = v.lastDuration.String()
	}
	if !v.persistedAsOf.IsZero() {
		asOf := v.persistedAsOf
		st.AsOf = &asOf
	}
	if snap := v.snapshot.Load(); snap != nil {
		st.Fingerprint = snap.Fingerprint
		st.Rows = snap.RowCount
		st.OrphanedEvents = snap.Stats.Orphaned
	}
	return st
}
