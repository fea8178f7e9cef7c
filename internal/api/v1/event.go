package v1

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventType is one stage of the shopping funnel.
type EventType string

const (
	EventView     EventType = "view"
	EventCart     EventType = "cart"
	EventPurchase EventType = "purchase"
)

// FunnelOrder lists the funnel stages in the order a shopper moves through them.
var FunnelOrder = []EventType{EventView, EventCart, EventPurchase}

// Valid reports whether t is one of the known funnel stages.
func (t EventType) Valid() bool {
	return t.Stage() >= 0
}

// Stage returns the zero-based funnel position of t, or -1 for unknown types.
func (t EventType) Stage() int {
	for i, s := range FunnelOrder {
		if s == t {
			return i
		}
	}
	return -1
}

// Event is one immutable shopper interaction.
// Once appended to the event store it is never updated or deleted.
type Event struct {
	// ID is the unique identifier of the interaction.
	ID string `json:"event_id"`

	// EventTime is when the interaction happened. It alone decides
	// which partition the event is routed to.
	EventTime time.Time `json:"event_time"`

	Type EventType `json:"event_type"`

	ProductID  int64 `json:"product_id"`
	CategoryID int64 `json:"category_id,omitempty"` // 0 = uncategorized
	BrandID    int64 `json:"brand_id,omitempty"`    // 0 = no brand

	Price decimal.Decimal `json:"price"`

	UserID    int64  `json:"user_id"`
	SessionID string `json:"session_id"`

	// IngestSeq is a monotonic sequence assigned by the store on append.
	// Refreshes use it as a high-watermark so rows appended mid-refresh are ignored.
	IngestSeq int64 `json:"-"`
}

// Validate ensures the event carries every attribute the aggregation engine relies on.
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event_id is required")
	}

	if e.EventTime.IsZero() {
		return fmt.Errorf("event_time is required")
	}

	if !e.Type.Valid() {
		return fmt.Errorf("event_type %q is not one of view, cart, purchase", e.Type)
	}

	if e.ProductID <= 0 {
		return fmt.Errorf("product_id must be positive")
	}

	if e.UserID <= 0 {
		return fmt.Errorf("user_id must be positive")
	}

	if e.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}

	if e.Price.IsNegative() {
		return fmt.Errorf("price must not be negative")
	}

	return nil
}
