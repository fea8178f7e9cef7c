package projection

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aevon-lab/storefront-insights/internal/core/aggregation"
	"github.com/aevon-lab/storefront-insights/internal/viewstore"
)

const defaultLimit = 20

var (
	// ErrUnknownView marks a request for a view name that does not exist (HTTP 404).
	ErrUnknownView = errors.New("unknown view")

	// ErrInvalidParameter marks malformed filters (HTTP 400).
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrViewNotReady marks a view that has never completed a refresh (HTTP 503).
	ErrViewNotReady = errors.New("view not ready")
)

// trend sort keys
const (
	SortDate      = "date"
	SortViews     = "views"
	SortPurchases = "purchases"
	SortRevenue   = "revenue"
)

// SnapshotSource returns the published snapshot of a view.
type SnapshotSource interface {
	Current(name aggregation.ViewName) (*viewstore.Snapshot, error)
}

// Service implements the read-only query layer over published snapshots.
// It never waits for a refresh: a query always sees the last published snapshot.
type Service struct {
	snapshots    SnapshotSource
	defaultLimit int
}

// NewService creates a new projection service. A non-positive limit uses 20.
func NewService(snapshots SnapshotSource, limit int) *Service {
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Service{snapshots: snapshots, defaultLimit: limit}
}

// Query filters, sorts and paginates one view.
func (s *Service) Query(name string, p Params) (*Response, error) {
	view := aggregation.ViewName(name)
	if !view.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, name)
	}

	q, err := s.parse(p)
	if err != nil {
		return nil, err
	}

	snap, err := s.snapshots.Current(view)
	if err != nil {
		if errors.Is(err, viewstore.ErrUnknownView) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownView, name)
		}
		return nil, fmt.Errorf("load snapshot %s: %w", view, err)
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: %s has not completed a refresh yet", ErrViewNotReady, view)
	}

	var (
		rows  any
		total int
	)
	switch view {
	case aggregation.ViewSalesFunnel:
		data, ok := snap.Rows.([]aggregation.FunnelStage)
		if !ok {
			return nil, rowTypeError(snap)
		}
		rows, total = data, len(data)
	case aggregation.ViewSessionAnalytics:
		data, ok := snap.Rows.([]aggregation.SessionSegment)
		if !ok {
			return nil, rowTypeError(snap)
		}
		rows, total = data, len(data)
	case aggregation.ViewTopConverting:
		data, ok := snap.Rows.([]aggregation.ProductConversion)
		if !ok {
			return nil, rowTypeError(snap)
		}
		total = len(data)
		rows = paginate(data, q.offset, q.limit)
	case aggregation.ViewAbandonedCarts:
		data, ok := snap.Rows.([]aggregation.AbandonedCart)
		if !ok {
			return nil, rowTypeError(snap)
		}
		total = len(data)
		rows = paginate(data, q.offset, q.limit)
	case aggregation.ViewBrandTrends:
		data, ok := snap.Rows.([]aggregation.BrandDay)
		if !ok {
			return nil, rowTypeError(snap)
		}
		filtered := filterTrends(data, q)
		total = len(filtered)
		limit := -1
		if q.hasLimit {
			limit = q.limit
		}
		rows = paginate(filtered, q.offset, limit)
	}

	return &Response{
		View:    view,
		AsOf:    snap.AsOf,
		Version: snap.Version,
		Total:   total,
		Count:   rowCount(rows),
		Rows:    rows,
	}, nil
}

func (s *Service) parse(p Params) (query, error) {
	q := query{limit: s.defaultLimit, sort: SortDate}

	if p.Limit != "" {
		n, err := strconv.Atoi(strings.TrimSpace(p.Limit))
		if err != nil {
			return q, fmt.Errorf("%w: limit %q is not an integer", ErrInvalidParameter, p.Limit)
		}
		if n < 0 {
			return q, fmt.Errorf("%w: limit must not be negative", ErrInvalidParameter)
		}
		q.limit, q.hasLimit = n, true
	}

	if p.Offset != "" {
		n, err := strconv.Atoi(strings.TrimSpace(p.Offset))
		if err != nil {
			return q, fmt.Errorf("%w: offset %q is not an integer", ErrInvalidParameter, p.Offset)
		}
		if n < 0 {
			return q, fmt.Errorf("%w: offset must not be negative", ErrInvalidParameter)
		}
		q.offset = n
	}

	var err error
	if q.startDate, err = parseDate("start_date", p.StartDate); err != nil {
		return q, err
	}
	if q.endDate, err = parseDate("end_date", p.EndDate); err != nil {
		return q, err
	}
	if !q.startDate.IsZero() && !q.endDate.IsZero() && q.endDate.Before(q.startDate) {
		return q, fmt.Errorf("%w: end_date must not be before start_date", ErrInvalidParameter)
	}

	q.brand = strings.TrimSpace(p.Brand)

	switch sortKey := strings.ToLower(strings.TrimSpace(p.Sort)); sortKey {
	case "":
	case SortDate, SortViews, SortPurchases, SortRevenue:
		q.sort = sortKey
	default:
		return q, fmt.Errorf("%w: sort must be one of date, views, purchases, revenue", ErrInvalidParameter)
	}
	return q, nil
}

func parseDate(name, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(aggregation.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q must be YYYY-MM-DD", ErrInvalidParameter, name, raw)
	}
	return t, nil
}

// filterTrends keeps rows of the requested brand inside the inclusive date range,
// then applies the requested order. The snapshot slice is never modified.
func filterTrends(rows []aggregation.BrandDay, q query) []aggregation.BrandDay {
	from, to := aggregation.DayRange(q.startDate, q.endDate)
	brandID, numeric := int64(0), false
	if q.brand != "" {
		if id, err := strconv.ParseInt(q.brand, 10, 64); err == nil {
			brandID, numeric = id, true
		}
	}

	out := make([]aggregation.BrandDay, 0, len(rows))
	for _, r := range rows {
		if !from.IsZero() && r.Day.Before(from) {
			continue
		}
		if !to.IsZero() && !r.Day.Before(to) {
			continue
		}
		if q.brand != "" {
			if numeric && r.BrandID != brandID {
				continue
			}
			if !numeric && !strings.EqualFold(r.BrandName, q.brand) {
				continue
			}
		}
		out = append(out, r)
	}

	if q.sort != SortDate {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i], out[j]
			switch q.sort {
			case SortViews:
				return a.Views > b.Views
			case SortPurchases:
				return a.Purchases > b.Purchases
			default:
				return a.Revenue.GreaterThan(b.Revenue)
			}
		})
	}
	return out
}

// paginate returns rows[offset:offset+limit]; a negative limit means no limit.
// limit 0 yields an empty, non-nil slice.
func paginate[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	rows = rows[offset:]
	if limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	out := make([]T, len(rows))
	copy(out, rows)
	return out
}

func rowCount(rows any) int {
	switch r := rows.(type) {
	case []aggregation.FunnelStage:
		return len(r)
	case []aggregation.SessionSegment:
		return len(r)
	case []aggregation.ProductConversion:
		return len(r)
	case []aggregation.AbandonedCart:
		return len(r)
	case []aggregation.BrandDay:
		return len(r)
	}
	return 0
}

func rowTypeError(snap *viewstore.Snapshot) error {
	return fmt.Errorf("snapshot %s v%d holds unexpected rows %T", snap.View, snap.Version, snap.Rows)
}
