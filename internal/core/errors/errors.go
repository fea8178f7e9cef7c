package errors

const (
	HttpInternalError         = "internal_error"
	HttpInvalidJsonError      = "invalid_json"
	HttpValidationError       = "validation_failed"
	HttpDuplicateEventError   = "duplicate_event"
	HttpOutOfRangeError       = "out_of_range_partition"
	HttpUnknownViewError      = "unknown_view"
	HttpInvalidParameterError = "invalid_parameter"
	HttpViewNotReadyError     = "view_not_ready"
	HttpViewStaleError        = "view_stale"
)

// ErrorResponse is the error response body shared by every HTTP handler.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
