package projection

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aevon-lab/storefront-insights/internal/core/aggregation"
	httperr "github.com/aevon-lab/storefront-insights/internal/core/errors"
	"github.com/aevon-lab/storefront-insights/internal/viewstore"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestService_Handlers_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		url            string
		expectedStatus int
		expectedType   string
	}{
		{name: "top converting ok", url: "/api/products/top-converting?limit=3", expectedStatus: http.StatusOK},
		{name: "trend filter ok", url: "/api/brands/trends?brand=apple&start_date=2019-10-01&end_date=2019-10-31", expectedStatus: http.StatusOK},
		{name: "generic lookup ok", url: "/v1/views/sales_funnel/rows", expectedStatus: http.StatusOK},
		{name: "unknown view returns 404", url: "/v1/views/nope/rows", expectedStatus: http.StatusNotFound, expectedType: httperr.HttpUnknownViewError},
		{name: "negative limit returns 400", url: "/api/products/top-converting?limit=-1", expectedStatus: http.StatusBadRequest, expectedType: httperr.HttpInvalidParameterError},
		{name: "bad date returns 400", url: "/api/brands/trends?start_date=yesterday", expectedStatus: http.StatusBadRequest, expectedType: httperr.HttpInvalidParameterError},
		{name: "never refreshed returns 503", url: "/api/products/abandoned-carts", expectedStatus: http.StatusServiceUnavailable, expectedType: httperr.HttpViewNotReadyError},
		{name: "internal error is hidden", url: "/api/sessions/analytics", expectedStatus: http.StatusServiceUnavailable, expectedType: httperr.HttpViewStaleError},
	}

	snaps := fakeSnapshots{
		aggregation.ViewTopConverting:    {View: aggregation.ViewTopConverting, AsOf: asOf, Rows: leaderboard(10)},
		aggregation.ViewBrandTrends:      {View: aggregation.ViewBrandTrends, AsOf: asOf, Rows: trends()},
		aggregation.ViewSalesFunnel:      {View: aggregation.ViewSalesFunnel, AsOf: asOf, Rows: []aggregation.FunnelStage{}},
		aggregation.ViewSessionAnalytics: {View: aggregation.ViewSessionAnalytics, AsOf: asOf, Rows: 42},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(snaps, 20)
			r := gin.New()
			svc.RegisterRoutes(r)

			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)

			if resp.Code != tc.expectedStatus {
				t.Logf("unexpected response body: %s", resp.Body.String())
			}
			require.Equal(t, tc.expectedStatus, resp.Code)

			if tc.expectedType != "" {
				var body httperr.ErrorResponse
				require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
				require.Equal(t, tc.expectedType, body.ErrorType)
				if tc.expectedType == httperr.HttpViewStaleError {
					require.Nil(t, body.Details)
				}
			}
		})
	}
}

func TestService_Handlers_ResponseShape(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := NewService(fakeSnapshots{
		aggregation.ViewTopConverting: {View: aggregation.ViewTopConverting, Version: 7, AsOf: asOf, Rows: leaderboard(4)},
	}, 20)
	r := gin.New()
	svc.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/api/products/top-converting?limit=2", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		View    string            `json:"view"`
		AsOf    string            `json:"as_of"`
		Version int64             `json:"version"`
		Total   int               `json:"total"`
		Count   int               `json:"count"`
		Data    []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, "top_converting_products", body.View)
	require.Equal(t, "2019-11-01T06:00:00Z", body.AsOf)
	require.Equal(t, int64(7), body.Version)
	require.Equal(t, 4, body.Total)
	require.Equal(t, 2, body.Count)
	require.Len(t, body.Data, 2)
}

var _ SnapshotSource = (*viewstore.Store)(nil)
