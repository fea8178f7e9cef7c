package projection

import (
	"errors"
	"testing"
	"time"

	"github.com/aevon-lab/storefront-insights/internal/core/aggregation"
	"github.com/aevon-lab/storefront-insights/internal/viewstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeSnapshots map[aggregation.ViewName]*viewstore.Snapshot

func (f fakeSnapshots) Current(name aggregation.ViewName) (*viewstore.Snapshot, error) {
	if !name.Valid() {
		return nil, viewstore.ErrUnknownView
	}
	return f[name], nil
}

var asOf = time.Date(2019, 11, 1, 6, 0, 0, 0, time.UTC)

func leaderboard(n int) []aggregation.ProductConversion {
	rows := make([]aggregation.ProductConversion, n)
	for i := range rows {
		rows[i] = aggregation.ProductConversion{ProductID: int64(i + 1), Views: int64(100 - i)}
	}
	return rows
}

func day(d int) time.Time {
	return time.Date(2019, 10, d, 0, 0, 0, 0, time.UTC)
}

func trends() []aggregation.BrandDay {
	row := func(d int, brandID int64, name string, views int64, revenue string) aggregation.BrandDay {
		return aggregation.BrandDay{
			BrandID: brandID, BrandName: name, Day: day(d), Date: day(d).Format(aggregation.DateLayout),
			Views: views, Revenue: decimal.RequireFromString(revenue),
		}
	}
	return []aggregation.BrandDay{
		row(1, 2, "apple", 5, "10"),
		row(1, 1, "samsung", 7, "30"),
		row(2, 1, "samsung", 3, "5"),
		row(4, 1, "samsung", 9, "0"),
		row(5, 2, "apple", 1, "99"),
	}
}

func newService(t *testing.T) *Service {
	t.Helper()
	return NewService(fakeSnapshots{
		aggregation.ViewTopConverting: {View: aggregation.ViewTopConverting, Version: 3, AsOf: asOf, Rows: leaderboard(30)},
		aggregation.ViewBrandTrends:   {View: aggregation.ViewBrandTrends, Version: 1, AsOf: asOf, Rows: trends()},
		aggregation.ViewSalesFunnel:   {View: aggregation.ViewSalesFunnel, Version: 1, AsOf: asOf, Rows: []aggregation.FunnelStage{{Stage: "view"}}},
	}, 0)
}

func TestQuery_LimitSemantics(t *testing.T) {
	svc := newService(t)

	resp, err := svc.Query(string(aggregation.ViewTopConverting), Params{})
	require.NoError(t, err)
	require.Equal(t, 20, resp.Count, "default limit")
	require.Equal(t, 30, resp.Total)
	require.Equal(t, asOf, resp.AsOf)
	require.Equal(t, int64(3), resp.Version)

	resp, err = svc.Query(string(aggregation.ViewTopConverting), Params{Limit: "0"})
	require.NoError(t, err)
	require.Equal(t, 0, resp.Count)
	require.NotNil(t, resp.Rows)
	require.Empty(t, resp.Rows)

	resp, err = svc.Query(string(aggregation.ViewTopConverting), Params{Limit: "500"})
	require.NoError(t, err)
	require.Equal(t, 30, resp.Count, "no padding past qualifying rows")

	resp, err = svc.Query(string(aggregation.ViewTopConverting), Params{Limit: "5", Offset: "28"})
	require.NoError(t, err)
	rows := resp.Rows.([]aggregation.ProductConversion)
	require.Len(t, rows, 2)
	require.Equal(t, int64(29), rows[0].ProductID)
}

func TestQuery_Errors(t *testing.T) {
	svc := newService(t)

	tests := []struct {
		name   string
		view   string
		params Params
		want   error
	}{
		{name: "unknown view", view: "revenue", want: ErrUnknownView},
		{name: "negative limit", view: string(aggregation.ViewTopConverting), params: Params{Limit: "-1"}, want: ErrInvalidParameter},
		{name: "non numeric limit", view: string(aggregation.ViewTopConverting), params: Params{Limit: "ten"}, want: ErrInvalidParameter},
		{name: "negative offset", view: string(aggregation.ViewTopConverting), params: Params{Offset: "-3"}, want: ErrInvalidParameter},
		{name: "bad date", view: string(aggregation.ViewBrandTrends), params: Params{StartDate: "10/01/2019"}, want: ErrInvalidParameter},
		{name: "inverted range", view: string(aggregation.ViewBrandTrends), params: Params{StartDate: "2019-10-05", EndDate: "2019-10-01"}, want: ErrInvalidParameter},
		{name: "bad sort", view: string(aggregation.ViewBrandTrends), params: Params{Sort: "random"}, want: ErrInvalidParameter},
		{name: "never refreshed", view: string(aggregation.ViewAbandonedCarts), want: ErrViewNotReady},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Query(tc.view, tc.params)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestQuery_UnexpectedRowsAreInternal(t *testing.T) {
	svc := NewService(fakeSnapshots{
		aggregation.ViewSessionAnalytics: {View: aggregation.ViewSessionAnalytics, Rows: "garbage"},
	}, 10)

	_, err := svc.Query(string(aggregation.ViewSessionAnalytics), Params{})
	require.Error(t, err)
	for _, known := range []error{ErrUnknownView, ErrInvalidParameter, ErrViewNotReady} {
		require.False(t, errors.Is(err, known))
	}
}

func TestQuery_BrandTrends(t *testing.T) {
	svc := newService(t)

	resp, err := svc.Query(string(aggregation.ViewBrandTrends), Params{Brand: "SAMSUNG", StartDate: "2019-10-01", EndDate: "2019-10-04"})
	require.NoError(t, err)
	rows := resp.Rows.([]aggregation.BrandDay)
	require.Len(t, rows, 3)
	var views int64
	for _, r := range rows {
		require.Equal(t, int64(1), r.BrandID)
		views += r.Views
	}
	require.Equal(t, int64(19), views, "inclusive end_date, no boundary double counting")

	resp, err = svc.Query(string(aggregation.ViewBrandTrends), Params{Brand: "2"})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Count)

	resp, err = svc.Query(string(aggregation.ViewBrandTrends), Params{StartDate: "2019-10-02", EndDate: "2019-10-02"})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)

	resp, err = svc.Query(string(aggregation.ViewBrandTrends), Params{Sort: "revenue", Limit: "2"})
	require.NoError(t, err)
	rows = resp.Rows.([]aggregation.BrandDay)
	require.Equal(t, 5, resp.Total)
	require.Len(t, rows, 2)
	require.Equal(t, "99", rows[0].Revenue.String())
	require.Equal(t, "30", rows[1].Revenue.String())

	// snapshot order untouched by sorting a query
	resp, err = svc.Query(string(aggregation.ViewBrandTrends), Params{})
	require.NoError(t, err)
	require.Equal(t, "2019-10-01", resp.Rows.([]aggregation.BrandDay)[0].Date)
}

func TestQuery_FunnelIgnoresLimit(t *testing.T) {
	svc := newService(t)
	resp, err := svc.Query(string(aggregation.ViewSalesFunnel), Params{Limit: "0"})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Count)
}
