package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/portfolio-service/portfolio_service/pkg/errors"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
)

const dateLayout = "2006-01-02"

// ErrorResponse is the standardized error body for all endpoints.
type ErrorResponse struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// getRequestID extracts request ID from context
func getRequestID(c *gin.Context) string {
	if reqID, exists := c.Get("request_id"); exists {
		if id, ok := reqID.(string); ok {
			return id
		}
	}
	return ""
}

// respondError maps a service error to its HTTP status and the
// standardized error body. Unknown errors become opaque 500s.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	if appErr, ok := errors.As(err); ok {
		c.JSON(appErr.StatusCode, ErrorResponse{
			Code:      string(appErr.Code),
			Message:   appErr.Message,
			Details:   appErr.Details,
			RequestID: getRequestID(c),
		})
		return
	}

	log.WithError(err).Errorw("unhandled error", "request_id", getRequestID(c))
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Code:      string(errors.ErrCodeInternal),
		Message:   "internal server error",
		RequestID: getRequestID(c),
	})
}

// respondBadRequest sends a bad request error for malformed payloads.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:      string(errors.ErrCodeInvalidInput),
		Message:   message,
		RequestID: getRequestID(c),
	})
}

// parseDateQuery parses an optional YYYY-MM-DD query parameter. The
// zero time is returned when the parameter is absent.
func parseDateQuery(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, errors.InvalidInput(name + " must be formatted as YYYY-MM-DD")
	}
	return day, nil
}
