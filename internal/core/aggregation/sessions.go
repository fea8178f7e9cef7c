package aggregation

import (
	"sort"
	"time"

	v1 "github.com/aevon-lab/storefront-insights/internal/api/v1"
	"github.com/shopspring/decimal"
)

type sessionState struct {
	userID    int64
	firstAt   time.Time
	firstSeq  int64
	lastAt    time.Time
	events    int64
	purchases int64
	revenue   decimal.Decimal
}

// SessionFold derives one Session per session_id.
// The session's user is the user of its earliest event.
type SessionFold struct {
	sessions map[string]*sessionState
}

func NewSessionFold() *SessionFold {
	return &SessionFold{sessions: make(map[string]*sessionState)}
}

func (f *SessionFold) Add(e *v1.Event) {
	s, ok := f.sessions[e.SessionID]
	if !ok {
		f.sessions[e.SessionID] = &sessionState{
			userID:   e.UserID,
			firstAt:  e.EventTime,
			firstSeq: e.IngestSeq,
			lastAt:   e.EventTime,
			events:   1,
			revenue:  purchaseRevenue(e),
		}
		if e.Type == v1.EventPurchase {
			f.sessions[e.SessionID].purchases = 1
		}
		return
	}

	if earlier(e.EventTime, e.IngestSeq, s.firstAt, s.firstSeq) {
		s.userID, s.firstAt, s.firstSeq = e.UserID, e.EventTime, e.IngestSeq
	}
	if e.EventTime.After(s.lastAt) {
		s.lastAt = e.EventTime
	}
	s.events++
	if e.Type == v1.EventPurchase {
		s.purchases++
		s.revenue = s.revenue.Add(e.Price)
	}
}

func (f *SessionFold) Merge(o *SessionFold) {
	for id, src := range o.sessions {
		s, ok := f.sessions[id]
		if !ok {
			cp := *src
			f.sessions[id] = &cp
			continue
		}
		if earlier(src.firstAt, src.firstSeq, s.firstAt, s.firstSeq) {
			s.userID, s.firstAt, s.firstSeq = src.userID, src.firstAt, src.firstSeq
		}
		if src.lastAt.After(s.lastAt) {
			s.lastAt = src.lastAt
		}
		s.events += src.events
		s.purchases += src.purchases
		s.revenue = s.revenue.Add(src.revenue)
	}
}

func purchaseRevenue(e *v1.Event) decimal.Decimal {
	if e.Type == v1.EventPurchase {
		return e.Price
	}
	return decimal.Zero
}

// Sessions returns every derived session ordered by session id.
func (f *SessionFold) Sessions() []Session {
	out := make([]Session, 0, len(f.sessions))
	for id, s := range f.sessions {
		out = append(out, Session{
			SessionID:    id,
			UserID:       s.userID,
			Start:        s.firstAt,
			End:          s.lastAt,
			Duration:     s.lastAt.Sub(s.firstAt),
			EventCount:   s.events,
			Purchases:    s.purchases,
			HasPurchase:  s.purchases > 0,
			TotalRevenue: s.revenue,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

type segmentTotals struct {
	sessions      int64
	users         userSet
	timedSessions int64
	durationMs    int64
	events        int64
	revenue       decimal.Decimal
}

func (t *segmentTotals) add(s Session) {
	t.sessions++
	t.users[s.UserID] = struct{}{}
	t.events += s.EventCount
	t.revenue = t.revenue.Add(s.TotalRevenue)
	if s.Duration > 0 {
		t.timedSessions++
		t.durationMs += s.Duration.Milliseconds()
	}
}

func (t *segmentTotals) row(segment string, users map[int64]UserSummary) SessionSegment {
	out := SessionSegment{
		Segment:  segment,
		Sessions: t.sessions,
		Users:    int64(len(t.users)),
		AvgDurationSeconds: Mean(
			decimal.NewFromInt(t.durationMs).Shift(-3), t.timedSessions,
		),
		AvgEventCount: Mean(decimal.NewFromInt(t.events), t.sessions),
		AvgRevenue:    Mean(t.revenue, t.sessions),
		TotalRevenue:  t.revenue,
	}

	// The user rollup spans all of a member's sessions, not only this segment's.
	var first, last time.Time
	for id := range t.users {
		u, ok := users[id]
		if !ok {
			continue
		}
		if u.Sessions > 1 {
			out.ReturningUsers++
		}
		if first.IsZero() || u.FirstSeen.Before(first) {
			first = u.FirstSeen
		}
		if u.LastSeen.After(last) {
			last = u.LastSeen
		}
	}
	if !first.IsZero() {
		out.FirstSeen, out.LastSeen = &first, &last
	}
	return out
}

// SessionSegments splits sessions into purchasers and non-purchasers, plus an
// all_users row. Zero-duration sessions count toward the group size but not the
// duration mean. users is the rollup from Users; it supplies returning users and
// the activity span of each segment.
func SessionSegments(sessions []Session, users []UserSummary) []SessionSegment {
	byUser := make(map[int64]UserSummary, len(users))
	for _, u := range users {
		byUser[u.UserID] = u
	}
	buyers := &segmentTotals{users: make(userSet)}
	browsers := &segmentTotals{users: make(userSet)}
	all := &segmentTotals{users: make(userSet)}

	for _, s := range sessions {
		if s.HasPurchase {
			buyers.add(s)
		} else {
			browsers.add(s)
		}
		all.add(s)
	}

	return []SessionSegment{
		buyers.row(SegmentPurchasers, byUser),
		browsers.row(SegmentNonPurchasers, byUser),
		all.row(SegmentAllUsers, byUser),
	}
}

// Users rolls sessions up per user, ordered by user id.
func Users(sessions []Session) []UserSummary {
	byUser := make(map[int64]*UserSummary)
	for _, s := range sessions {
		u, ok := byUser[s.UserID]
		if !ok {
			u = &UserSummary{UserID: s.UserID, FirstSeen: s.Start, LastSeen: s.End}
			byUser[s.UserID] = u
		}
		if s.Start.Before(u.FirstSeen) {
			u.FirstSeen = s.Start
		}
		if s.End.After(u.LastSeen) {
			u.LastSeen = s.End
		}
		u.Sessions++
		u.Events += s.EventCount
		u.Purchases += s.Purchases
	}

	out := make([]UserSummary, 0, len(byUser))
	for _, u := range byUser {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
