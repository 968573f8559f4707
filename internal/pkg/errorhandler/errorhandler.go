package errorhandler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/schoolhub/schoolhub-api/internal/pkg/response"
)

// HandleError logs an error with request context and sends a formatted error response
func HandleError(ctx context.Context, w http.ResponseWriter, status int, code, message string, err error) {
	event := log.Error().
		Str("request_id", getRequestID(ctx)).
		Str("error_code", code).
		Str("error_message", message).
		Int("status_code", status)

	if err != nil {
		event.Err(err)
	}

	event.Msg("Request error")

	response.Error(w, status, code, message)
}

// HandleErrorWithDetails logs an error with additional details and sends a formatted response
func HandleErrorWithDetails(ctx context.Context, w http.ResponseWriter, status int, code, message string, details map[string]string, err error) {
	event := log.Error().
		Str("request_id", getRequestID(ctx)).
		Str("error_code", code).
		Str("error_message", message).
		Int("status_code", status)

	if err != nil {
		event.Err(err)
	}

	if details != nil {
		event.Interface("error_details", details)
	}

	event.Msg("Request error with details")

	response.ErrorWithDetails(w, status, code, message, details)
}

// LogDatabaseError logs database errors with context
func LogDatabaseError(ctx context.Context, operation string, err error) {
	log.Error().
		Str("request_id", getRequestID(ctx)).
		Str("operation", operation).
		Err(err).
		Msg("Database error")
}

func getRequestID(ctx context.Context) string {
	if reqID := ctx.Value("request_id"); reqID != nil {
		if id, ok := reqID.(string); ok {
			return id
		}
	}
	return "unknown"
}
