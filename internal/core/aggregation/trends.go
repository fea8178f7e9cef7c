package aggregation

import (
	"sort"
	"time"

	v1 "github.com/aevon-lab/storefront-insights/internal/api/v1"
	"github.com/aevon-lab/storefront-insights/internal/core/dimension"
	"github.com/shopspring/decimal"
)

// DateLayout is the rendering of a UTC day in trend rows and query parameters.
const DateLayout = "2006-01-02"

type brandDayKey struct {
	brand int64
	day   int64 // unix seconds of the UTC midnight
}

type brandDayState struct {
	views, carts, purchases int64
	revenue                 decimal.Decimal
	users                   userSet
}

// TrendFold buckets branded events per (brand, UTC day).
// Events without a brand and events before Since are ignored.
type TrendFold struct {
	since time.Time
	days  map[brandDayKey]*brandDayState
}

// NewTrendFold creates a fold; a zero since keeps the whole log.
func NewTrendFold(since time.Time) *TrendFold {
	return &TrendFold{since: since, days: make(map[brandDayKey]*brandDayState)}
}

func (f *TrendFold) Add(e *v1.Event) {
	if e.BrandID == 0 {
		return
	}
	if !f.since.IsZero() && e.EventTime.Before(f.since) {
		return
	}

	k := brandDayKey{brand: e.BrandID, day: DayBucket(e.EventTime).Unix()}
	s, ok := f.days[k]
	if !ok {
		s = &brandDayState{users: make(userSet)}
		f.days[k] = s
	}
	switch e.Type {
	case v1.EventView:
		s.views++
	case v1.EventCart:
		s.carts++
	case v1.EventPurchase:
		s.purchases++
		s.revenue = s.revenue.Add(e.Price)
	}
	s.users[e.UserID] = struct{}{}
}

func (f *TrendFold) Merge(o *TrendFold) {
	for k, src := range o.days {
		s, ok := f.days[k]
		if !ok {
			s = &brandDayState{users: make(userSet)}
			f.days[k] = s
		}
		s.views += src.views
		s.carts += src.carts
		s.purchases += src.purchases
		s.revenue = s.revenue.Add(src.revenue)
		s.users.merge(src.users)
	}
}

// BrandTrends renders the non-empty (brand, day) buckets ordered by day,
// then brand name, then brand id. Days without events are not emitted.
func BrandTrends(f *TrendFold, cat *dimension.Catalog) []BrandDay {
	out := make([]BrandDay, 0, len(f.days))
	for k, s := range f.days {
		d := time.Unix(k.day, 0).UTC()
		row := BrandDay{
			BrandID:     k.brand,
			Day:         d,
			Date:        d.Format(DateLayout),
			Views:       s.views,
			Carts:       s.carts,
			Purchases:   s.purchases,
			Revenue:     s.revenue,
			UniqueUsers: int64(len(s.users)),
		}
		if cat != nil {
			if b, ok := cat.Brand(k.brand); ok {
				row.BrandName = b.Name
			}
		}
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Day.Equal(b.Day) {
			return a.Day.Before(b.Day)
		}
		if a.BrandName != b.BrandName {
			return a.BrandName < b.BrandName
		}
		return a.BrandID < b.BrandID
	})
	return out
}
