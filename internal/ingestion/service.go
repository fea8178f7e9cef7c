package ingestion

import (
	"time"

	"github.com/aevon-lab/storefront-insights/internal/core/partition"
	"github.com/aevon-lab/storefront-insights/internal/core/storage"
	"github.com/gin-gonic/gin"
)

// maxBatchSize bounds the number of events accepted by one batch request.
const maxBatchSize = 5000

// Locator finds the partition covering an event time.
type Locator interface {
	Locate(ts time.Time) (partition.Partition, error)
}

// Service is the append boundary in front of the event store.
type Service struct {
	store            storage.EventStore
	partitions       Locator
	maxBodySizeBytes int
}

func NewService(store storage.EventStore, partitions Locator, maxBodySizeMB int) *Service {
	if store == nil {
		panic("ingestion: store must not be nil")
	}
	if partitions == nil {
		panic("ingestion: partition locator must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		store:            store,
		partitions:       partitions,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/events", s.IngestHandler)
	r.POST("/v1/events/batch", s.IngestBatchHandler)
}
