package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	v1 "github.com/aevon-lab/storefront-insights/internal/api/v1"
	"github.com/aevon-lab/storefront-insights/internal/core/dimension"
	"github.com/aevon-lab/storefront-insights/internal/core/partition"
	"github.com/aevon-lab/storefront-insights/internal/core/storage"
)

// Store keeps the event log, dimensions, partition catalog and view state in memory.
// It backs `database.type: memory` and the unit tests of every layer above storage.
type Store struct {
	mu sync.RWMutex

	partitions  []partition.Partition // sorted by Start
	byPartition map[string][]*v1.Event
	ids         map[string]struct{}
	seq         int64

	products   map[int64]dimension.Product
	brands     map[int64]dimension.Brand
	categories map[int64]dimension.Category

	viewStates map[string]storage.ViewState
}

// NewStore creates an empty store with no partitions.
func NewStore() *Store {
	return &Store{
		byPartition: make(map[string][]*v1.Event),
		ids:         make(map[string]struct{}),
		products:    make(map[int64]dimension.Product),
		brands:      make(map[int64]dimension.Brand),
		categories:  make(map[int64]dimension.Category),
		viewStates:  make(map[string]storage.ViewState),
	}
}

// LoadPartitions implements partition.Catalog.
func (s *Store) LoadPartitions(_ context.Context) ([]partition.Partition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]partition.Partition, len(s.partitions))
	copy(out, s.partitions)
	return out, nil
}

// CreatePartition implements partition.Catalog.
func (s *Store) CreatePartition(_ context.Context, p partition.Partition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.partitions {
		if existing.ID == p.ID {
			return nil
		}
		if p.Start.Before(existing.End) && existing.Start.Before(p.End) {
			return fmt.Errorf("%w: %s intersects %s", partition.ErrOverlap, p.ID, existing.ID)
		}
	}
	s.partitions = append(s.partitions, p)
	sort.Slice(s.partitions, func(i, j int) bool {
		return s.partitions[i].Start.Before(s.partitions[j].Start)
	})
	return nil
}

// AppendEvent implements storage.EventStore.
func (s *Store) AppendEvent(_ context.Context, event *v1.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.routeLocked(event.EventTime)
	if !ok {
		return fmt.Errorf("%w: %s", partition.ErrOutOfRange, event.EventTime.UTC().Format(time.RFC3339))
	}
	if _, dup := s.ids[event.ID]; dup {
		return storage.ErrDuplicate
	}

	s.seq++
	stored := *event
	stored.IngestSeq = s.seq
	s.byPartition[p.ID] = append(s.byPartition[p.ID], &stored)
	s.ids[event.ID] = struct{}{}
	event.IngestSeq = s.seq
	return nil
}

// HighWatermark implements storage.EventStore.
func (s *Store) HighWatermark(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq, nil
}

// ScanPartition implements storage.EventStore.
// The partition slice is append-only, so the header captured under the read
// lock stays valid while fn runs without the lock held.
func (s *Store) ScanPartition(
	ctx context.Context,
	p partition.Partition,
	watermark int64,
	fn func(*v1.Event) error,
) error {
	s.mu.RLock()
	events := s.byPartition[p.ID]
	s.mu.RUnlock()

	for i, evt := range events {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if evt.IngestSeq > watermark {
			continue
		}
		cp := *evt
		if err := fn(&cp); err != nil {
			return err
		}
	}
	return nil
}

// LoadDimensions implements storage.DimensionStore.
func (s *Store) LoadDimensions(_ context.Context) (*dimension.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]dimension.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	brands := make([]dimension.Brand, 0, len(s.brands))
	for _, b := range s.brands {
		brands = append(brands, b)
	}
	categories := make([]dimension.Category, 0, len(s.categories))
	for _, c := range s.categories {
		categories = append(categories, c)
	}
	return dimension.NewCatalog(products, brands, categories), nil
}

// PutProducts upserts product rows.
func (s *Store) PutProducts(products ...dimension.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		s.products[p.ID] = p
	}
}

// PutBrands upserts brand rows.
func (s *Store) PutBrands(brands ...dimension.Brand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range brands {
		s.brands[b.ID] = b
	}
}

// PutCategories upserts category rows.
func (s *Store) PutCategories(categories ...dimension.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range categories {
		s.categories[c.ID] = c
	}
}

// LoadViewStates implements storage.ViewStateStore.
func (s *Store) LoadViewStates(_ context.Context) ([]storage.ViewState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.ViewState, 0, len(s.viewStates))
	for _, st := range s.viewStates {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].View < out[j].View })
	return out, nil
}

// SaveViewState implements storage.ViewStateStore.
func (s *Store) SaveViewState(_ context.Context, state storage.ViewState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewStates[state.View] = state
	return nil
}

func (s *Store) routeLocked(ts time.Time) (partition.Partition, bool) {
	i := sort.Search(len(s.partitions), func(i int) bool {
		return s.partitions[i].End.After(ts)
	})
	if i < len(s.partitions) && s.partitions[i].Contains(ts) {
		return s.partitions[i], true
	}
	return partition.Partition{}, false
}
