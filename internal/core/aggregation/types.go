package aggregation

import (
	"errors"
	"time"

	v1 "github.com/aevon-lab/storefront-insights/internal/api/v1"
	"github.com/shopspring/decimal"
)

// ErrIncompleteDimensionJoin marks an event that references a product, brand or
// category missing from the dimension tables. Such events are skipped and counted,
// never allowed to abort a refresh.
var ErrIncompleteDimensionJoin = errors.New("incomplete dimension join")

// ViewName identifies one of the materialized views.
type ViewName string

const (
	ViewSalesFunnel      ViewName = "sales_funnel"
	ViewTopConverting    ViewName = "top_converting_products"
	ViewAbandonedCarts   ViewName = "abandoned_carts"
	ViewSessionAnalytics ViewName = "session_analytics"
	ViewBrandTrends      ViewName = "brand_trends"
)

// AllViews lists every view in refresh order.
var AllViews = []ViewName{
	ViewSalesFunnel,
	ViewTopConverting,
	ViewAbandonedCarts,
	ViewSessionAnalytics,
	ViewBrandTrends,
}

// Valid reports whether v names a known view.
func (v ViewName) Valid() bool {
	for _, known := range AllViews {
		if v == known {
			return true
		}
	}
	return false
}

// FunnelStage is one row of the sales funnel.
// Sessions counts sessions that reached the stage (contain it or a later stage);
// SessionsWithEvent counts only sessions holding an event of the stage's own type.
// ConversionRate is computed from Sessions and is null for the first stage and
// whenever the previous stage is empty.
type FunnelStage struct {
	Stage             v1.EventType        `json:"stage"`
	Sessions          int64               `json:"sessions"`
	SessionsWithEvent int64               `json:"sessions_with_event"`
	EventCount        int64               `json:"event_count"`
	UniqueUsers       int64               `json:"unique_users"`
	ConversionRate    decimal.NullDecimal `json:"conversion_rate"`
}

// ProductConversion is one row of the top-converting leaderboard.
type ProductConversion struct {
	ProductID      int64           `json:"product_id"`
	BrandID        int64           `json:"brand_id,omitempty"`
	BrandName      string          `json:"brand_name,omitempty"`
	CategoryID     int64           `json:"category_id,omitempty"`
	Category       string          `json:"category"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	Views          int64           `json:"total_views"`
	Carts          int64           `json:"total_carts"`
	Purchases      int64           `json:"total_purchases"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
	CartRate       decimal.Decimal `json:"cart_rate"`
}

// AbandonedCart is one row of the abandoned-cart ranking.
type AbandonedCart struct {
	ProductID        int64           `json:"product_id"`
	BrandID          int64           `json:"brand_id,omitempty"`
	BrandName        string          `json:"brand_name,omitempty"`
	Category         string          `json:"category"`
	Carts            int64           `json:"total_carts"`
	Purchases        int64           `json:"total_purchases"`
	CartingSessions  int64           `json:"carting_sessions"`
	AbandonmentScore int64           `json:"abandonment_score"`
	AbandonmentRate  decimal.Decimal `json:"abandonment_rate"`
}

// Session segments reported by session analytics.
const (
	SegmentPurchasers    = "purchasers"
	SegmentNonPurchasers = "non_purchasers"
	SegmentAllUsers      = "all_users"
)

// SessionSegment summarizes one group of sessions.
// ReturningUsers counts members with more than one session; FirstSeen and
// LastSeen bound the members' activity. Both come from the per-user rollup.
type SessionSegment struct {
	Segment            string          `json:"segment"`
	Sessions           int64           `json:"sessions"`
	Users              int64           `json:"user_count"`
	AvgDurationSeconds decimal.Decimal `json:"avg_duration_seconds"`
	AvgEventCount      decimal.Decimal `json:"avg_event_count"`
	AvgRevenue         decimal.Decimal `json:"avg_revenue"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	ReturningUsers     int64           `json:"returning_users"`
	FirstSeen          *time.Time      `json:"first_seen,omitempty"`
	LastSeen           *time.Time      `json:"last_seen,omitempty"`
}

// BrandDay is the activity of one brand on one UTC day.
type BrandDay struct {
	BrandID     int64           `json:"brand_id"`
	BrandName   string          `json:"brand_name"`
	Day         time.Time       `json:"-"`
	Date        string          `json:"date"`
	Views       int64           `json:"views"`
	Carts       int64           `json:"carts"`
	Purchases   int64           `json:"purchases"`
	Revenue     decimal.Decimal `json:"revenue"`
	UniqueUsers int64           `json:"unique_users"`
}

// Session is derived from the events sharing one session_id.
type Session struct {
	SessionID    string
	UserID       int64
	Start        time.Time
	End          time.Time
	Duration     time.Duration
	EventCount   int64
	Purchases    int64
	HasPurchase  bool
	TotalRevenue decimal.Decimal
}

// UserSummary is derived from a user's sessions on every refresh.
type UserSummary struct {
	UserID    int64
	FirstSeen time.Time
	LastSeen  time.Time
	Sessions  int64
	Events    int64
	Purchases int64
}

// ProductCounters are the per-product totals, always an aggregate over the event log.
type ProductCounters struct {
	ProductID    int64
	Views        int64
	Carts        int64
	Purchases    int64
	CurrentPrice decimal.Decimal

	priceAt  time.Time
	priceSeq int64
}
