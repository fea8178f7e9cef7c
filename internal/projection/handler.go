package projection

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aevon-lab/storefront-insights/internal/core/aggregation"
	httperr "github.com/aevon-lab/storefront-insights/internal/core/errors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/sales-funnel", s.viewHandler(aggregation.ViewSalesFunnel))
	r.GET("/api/products/top-converting", s.viewHandler(aggregation.ViewTopConverting))
	r.GET("/api/products/abandoned-carts", s.viewHandler(aggregation.ViewAbandonedCarts))
	r.GET("/api/sessions/analytics", s.viewHandler(aggregation.ViewSessionAnalytics))
	r.GET("/api/brands/trends", s.viewHandler(aggregation.ViewBrandTrends))

	// Generic lookup by view name.
	r.GET("/v1/views/:view/rows", s.HandleQueryView)
}

func (s *Service) viewHandler(view aggregation.ViewName) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.serve(c, string(view))
	}
}

// HandleQueryView handles GET /v1/views/:view/rows
// Query parameters: limit, offset, brand, start_date, end_date, sort
func (s *Service) HandleQueryView(c *gin.Context) {
	s.serve(c, c.Param("view"))
}

func (s *Service) serve(c *gin.Context, view string) {
	var params Params
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidParameterError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	resp, err := s.Query(view, params)
	if err != nil {
		writeQueryError(c, view, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// writeQueryError surfaces caller errors verbatim and hides everything else
// behind a generic "view temporarily stale".
func writeQueryError(c *gin.Context, view string, err error) {
	switch {
	case errors.Is(err, ErrUnknownView):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpUnknownViewError,
			Message:   "Unknown view",
			Details:   err.Error(),
		})
	case errors.Is(err, ErrInvalidParameter):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidParameterError,
			Message:   "Invalid query parameter",
			Details:   err.Error(),
		})
	case errors.Is(err, ErrViewNotReady):
		c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
			ErrorType: httperr.HttpViewNotReadyError,
			Message:   "View has not been computed yet",
			Details:   err.Error(),
		})
	default:
		slog.Error("[Projection] Query failed", "view", view, "error", err)
		c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
			ErrorType: httperr.HttpViewStaleError,
			Message:   "View temporarily stale",
		})
	}
}
