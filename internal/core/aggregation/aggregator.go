package aggregation

import (
	"time"

	v1 "github.com/aevon-lab/storefront-insights/internal/api/v1"
)

// Fold accumulates events into the intermediate state of one view.
// The engine builds one fold per partition on separate workers and merges them,
// so Add and Merge must give the same result in any order.
type Fold[F any] interface {
	Add(e *v1.Event)
	Merge(other F)
}

var (
	_ Fold[*FunnelFold]      = (*FunnelFold)(nil)
	_ Fold[*ProductFold]     = (*ProductFold)(nil)
	_ Fold[*AbandonmentFold] = (*AbandonmentFold)(nil)
	_ Fold[*SessionFold]     = (*SessionFold)(nil)
	_ Fold[*TrendFold]       = (*TrendFold)(nil)
)

type userSet map[int64]struct{}

func (s userSet) merge(o userSet) {
	for id := range o {
		s[id] = struct{}{}
	}
}

// later reports whether (at, seq) orders after (curAt, curSeq).
// ingest_seq breaks event_time ties so merges stay order-independent.
func later(at time.Time, seq int64, curAt time.Time, curSeq int64) bool {
	if !at.Equal(curAt) {
		return at.After(curAt)
	}
	return seq > curSeq
}

// earlier is the mirror of later.
func earlier(at time.Time, seq int64, curAt time.Time, curSeq int64) bool {
	if !at.Equal(curAt) {
		return at.Before(curAt)
	}
	return seq < curSeq
}
