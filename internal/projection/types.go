package projection

import (
	"time"

	"github.com/aevon-lab/storefront-insights/internal/core/aggregation"
)

// Params are the raw query-string filters of a view request.
// Parsing happens in the service so every caller gets the same validation.
type Params struct {
	Limit     string `form:"limit"`
	Offset    string `form:"offset"`
	Brand     string `form:"brand"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Sort      string `form:"sort"`
}

// Response is the result of a view query: ordered rows plus the as_of of the
// snapshot they were served from.
type Response struct {
	View    aggregation.ViewName `json:"view"`
	AsOf    time.Time            `json:"as_of"`
	Version int64                `json:"version"`
	Total   int                  `json:"total"`
	Count   int                  `json:"count"`
	Rows    any                  `json:"data"`
}

type query struct {
	limit     int
	hasLimit  bool
	offset    int
	brand     string
	startDate time.Time
	endDate   time.Time
	sort      string
}
