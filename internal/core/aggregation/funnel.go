package aggregation

import (
	v1 "github.com/aevon-lab/storefront-insights/internal/api/v1"
)

// FunnelFold tracks the furthest stage each session reached plus raw per-stage totals.
type FunnelFold struct {
	reached map[string]int // session_id -> highest stage index seen
	events  []int64
	users   []userSet
	seen    []map[string]struct{} // sessions with at least one event of the stage's type
}

func NewFunnelFold() *FunnelFold {
	f := &FunnelFold{
		reached: make(map[string]int),
		events:  make([]int64, len(v1.FunnelOrder)),
		users:   make([]userSet, len(v1.FunnelOrder)),
		seen:    make([]map[string]struct{}, len(v1.FunnelOrder)),
	}
	for i := range f.users {
		f.users[i] = make(userSet)
		f.seen[i] = make(map[string]struct{})
	}
	return f
}

func (f *FunnelFold) Add(e *v1.Event) {
	stage := e.Type.Stage()
	if stage < 0 {
		return
	}
	f.events[stage]++
	f.users[stage][e.UserID] = struct{}{}
	f.seen[stage][e.SessionID] = struct{}{}
	if cur, ok := f.reached[e.SessionID]; !ok || stage > cur {
		f.reached[e.SessionID] = stage
	}
}

func (f *FunnelFold) Merge(o *FunnelFold) {
	for i := range f.events {
		f.events[i] += o.events[i]
		f.users[i].merge(o.users[i])
		for session := range o.seen[i] {
			f.seen[i][session] = struct{}{}
		}
	}
	for session, stage := range o.reached {
		if cur, ok := f.reached[session]; !ok || stage > cur {
			f.reached[session] = stage
		}
	}
}

// Stages renders the funnel in view → cart → purchase order.
// A session that reached a later stage also counts for every earlier one,
// so Sessions never increases along the funnel.
func (f *FunnelFold) Stages() []FunnelStage {
	sessions := make([]int64, len(v1.FunnelOrder))
	for _, stage := range f.reached {
		for i := 0; i <= stage; i++ {
			sessions[i]++
		}
	}

	out := make([]FunnelStage, len(v1.FunnelOrder))
	for i, t := range v1.FunnelOrder {
		out[i] = FunnelStage{
			Stage:             t,
			Sessions:          sessions[i],
			SessionsWithEvent: int64(len(f.seen[i])),
			EventCount:        f.events[i],
			UniqueUsers:       int64(len(f.users[i])),
		}
		if i > 0 {
			out[i].ConversionRate = Ratio(sessions[i], sessions[i-1])
		}
	}
	return out
}
