package viewstore

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aevon-lab/storefront-insights/internal/core/aggregation"
	httperr "github.com/aevon-lab/storefront-insights/internal/core/errors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the operator endpoints: view status and refresh triggers.
func (s *Store) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/views", s.HandleStatus)
	r.POST("/v1/views/refresh", s.HandleRefreshAll)
	r.POST("/v1/views/:view/refresh", s.HandleRefresh)
}

// HandleStatus handles GET /v1/views
func (s *Store) HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"views": s.Status()})
}

// HandleRefresh handles POST /v1/views/:view/refresh
// The refresh runs in the background under the store's base context, not the
// request's; the response is 202 whether it started now or was already running.
func (s *Store) HandleRefresh(c *gin.Context) {
	name := aggregation.ViewName(c.Param("view"))
	if _, ok := s.views[name]; !ok {
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpUnknownViewError,
			Message:   "Unknown view",
			Details:   string(name),
		})
		return
	}

	s.background(func(ctx context.Context) {
		if err := s.Trigger(ctx, name); err != nil && !errors.Is(err, ErrRefreshInProgress) {
			slog.Warn("[ViewStore] Triggered refresh failed", "view", name, "error", err)
		}
	})

	c.JSON(http.StatusAccepted, gin.H{"view": name, "status": "accepted"})
}

// HandleRefreshAll handles POST /v1/views/refresh
func (s *Store) HandleRefreshAll(c *gin.Context) {
	s.background(func(ctx context.Context) {
		if err := s.RefreshAll(ctx); err != nil {
			slog.Warn("[ViewStore] Triggered refresh-all finished with errors", "error", err)
		}
	})

	c.JSON(http.StatusAccepted, gin.H{"views": aggregation.AllViews, "status": "accepted"})
}
