package aggregation

import (
	"fmt"
	"strconv"
	"time"
)

const day = 24 * time.Hour

// WindowSpec represents a parsed and validated window size.
type WindowSpec struct {
	Size time.Duration
}

// ParseWindowSize parses a duration string into a WindowSpec.
// Supports Go duration syntax (e.g., "30m", "1h") plus "Xd" for days.
func ParseWindowSize(s string) (WindowSpec, error) {
	if s == "" {
		return WindowSpec{}, fmt.Errorf("window size must not be empty")
	}

	if len(s) > 1 && s[len(s)-1] == 'd' {
		days, err := strconv.Atoi(s[:len(s)-1])
		if err != nil {
			return WindowSpec{}, fmt.Errorf("invalid window size %q: %w", s, err)
		}
		if days <= 0 {
			return WindowSpec{}, fmt.Errorf("window size must be positive, got %q", s)
		}
		return WindowSpec{Size: time.Duration(days) * day}, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return WindowSpec{}, fmt.Errorf("invalid window size %q: %w", s, err)
	}
	if d <= 0 {
		return WindowSpec{}, fmt.Errorf("window size must be positive, got %q", s)
	}
	return WindowSpec{Size: d}, nil
}

// BucketFor truncates a timestamp to the nearest granularity boundary.
// Example: BucketFor(10:35:42, time.Hour) → 10:00:00
func BucketFor(t time.Time, granularity time.Duration) time.Time {
	return t.Truncate(granularity)
}

// DayBucket returns the UTC midnight that starts ts's day.
func DayBucket(ts time.Time) time.Time {
	return BucketFor(ts.UTC(), day)
}

// DayRange converts an inclusive [startDate, endDate] day range into the
// half-open instant range [start, end+1d). Either side may be zero (unbounded).
func DayRange(startDate, endDate time.Time) (from, to time.Time) {
	if !startDate.IsZero() {
		from = DayBucket(startDate)
	}
	if !endDate.IsZero() {
		to = DayBucket(endDate).Add(day)
	}
	return from, to
}
