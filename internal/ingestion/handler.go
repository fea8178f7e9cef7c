package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	v1 "github.com/aevon-lab/storefront-insights/internal/api/v1"
	httperr "github.com/aevon-lab/storefront-insights/internal/core/errors"
	"github.com/aevon-lab/storefront-insights/internal/core/partition"
	"github.com/aevon-lab/storefront-insights/internal/core/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidJSON    = "Invalid JSON body"
	msgPersistFailed  = "Failed to persist event"
	msgDuplicateEvent = "Event already exists"
	msgOutOfRange     = "No partition covers event_time"
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// BatchResult summarizes a batch append. Rejected lists the failing items by index.
type BatchResult struct {
	Accepted int             `json:"accepted"`
	Rejected []RejectedEvent `json:"rejected"`
}

// RejectedEvent is one batch item that was not appended.
type RejectedEvent struct {
	Index     int    `json:"index"`
	EventID   string `json:"event_id,omitempty"`
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

// IngestHandler handles HTTP POST requests for event ingestion.
func (s *Service) IngestHandler(c *gin.Context) {
	body, ierr := s.readBody(c)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	var evt v1.Event
	if err := json.Unmarshal(body, &evt); err != nil {
		slog.Warn("[Ingestion] Invalid JSON body received", "error", err, "payload_size", len(body))
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		})
		return
	}

	if ierr := s.ingest(c.Request.Context(), &evt); ierr != nil {
		writeError(c, ierr)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "event_id": evt.ID})
}

// IngestBatchHandler handles POST /v1/events/batch with a JSON array of events.
// Items are appended independently; one bad item does not reject the batch.
func (s *Service) IngestBatchHandler(c *gin.Context) {
	body, ierr := s.readBody(c)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	var events []v1.Event
	if err := json.Unmarshal(body, &events); err != nil {
		slog.Warn("[Ingestion] Invalid JSON batch received", "error", err, "payload_size", len(body))
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		})
		return
	}
	if len(events) > maxBatchSize {
		writeError(c, &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpValidationError,
			message:    "Batch exceeds maximum number of events",
			details:    map[string]interface{}{"max_events": maxBatchSize},
		})
		return
	}

	result := BatchResult{Rejected: []RejectedEvent{}}
	for i := range events {
		evt := &events[i]
		if ierr := s.ingest(c.Request.Context(), evt); ierr != nil {
			if ierr.statusCode >= http.StatusInternalServerError {
				writeError(c, ierr)
				return
			}
			result.Rejected = append(result.Rejected, RejectedEvent{
				Index:     i,
				EventID:   evt.ID,
				ErrorType: ierr.errorType,
				Message:   ierr.message,
			})
			continue
		}
		result.Accepted++
	}

	slog.Info("[Ingestion] Batch processed",
		"size", len(events),
		"accepted", result.Accepted,
		"rejected", len(result.Rejected))

	c.JSON(http.StatusOK, result)
}

// readBody reads the request body up to the configured limit.
func (s *Service) readBody(c *gin.Context) ([]byte, *ingestionError) {
	// Enforce maximum body size to prevent OOM attacks
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("[Ingestion] Failed to read request body", "error", err)
		return nil, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("[Ingestion] Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	return bodyBytes, nil
}

// ingest validates, routes and appends one event.
func (s *Service) ingest(ctx context.Context, evt *v1.Event) *ingestionError {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	evt.EventTime = evt.EventTime.UTC()

	if err := evt.Validate(); err != nil {
		slog.Warn("[Ingestion] Envelope validation failed", "error", err, "event_id", evt.ID)
		return &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    err.Error(),
		}
	}

	p, err := s.partitions.Locate(evt.EventTime)
	if err != nil {
		return outOfRange(evt, err)
	}

	slog.Debug("[Ingestion] Received Event",
		"event_id", evt.ID,
		"event_type", evt.Type,
		"session_id", evt.SessionID,
		"partition", p.ID)

	return s.persistEvent(ctx, evt)
}

// persistEvent saves the event to the backing store.
func (s *Service) persistEvent(ctx context.Context, evt *v1.Event) *ingestionError {
	if err := s.store.AppendEvent(ctx, evt); err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicate):
			slog.Info("[Ingestion] Duplicate event rejected", "event_id", evt.ID)
			return &ingestionError{
				statusCode: http.StatusConflict,
				errorType:  httperr.HttpDuplicateEventError,
				message:    msgDuplicateEvent,
			}
		case errors.Is(err, partition.ErrOutOfRange):
			// The store's partition set may differ from the cached index.
			return outOfRange(evt, err)
		}

		slog.Error("[Ingestion] Failed to persist event", "error", err, "event_id", evt.ID)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgPersistFailed,
		}
	}

	return nil
}

func outOfRange(evt *v1.Event, err error) *ingestionError {
	slog.Warn("[Ingestion] Event outside every partition",
		"event_id", evt.ID,
		"event_time", evt.EventTime,
		"error", err)
	return &ingestionError{
		statusCode: http.StatusUnprocessableEntity,
		errorType:  httperr.HttpOutOfRangeError,
		message:    msgOutOfRange,
		details: map[string]interface{}{
			"event_time": evt.EventTime,
		},
	}
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
