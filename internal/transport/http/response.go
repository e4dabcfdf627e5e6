package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"florence-server-go/internal/platform/errors"
)

// APIResponse is the envelope every JSON endpoint returns.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

// RespondSuccess writes a success envelope.
func RespondSuccess(c *gin.Context, httpStatus int, data interface{}, message string) {
	if message == "" {
		message = "ok"
	}

	c.JSON(httpStatus, APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

// RespondError writes a failure envelope.
func RespondError(c *gin.Context, httpStatus int, message string, data interface{}) {
	c.JSON(httpStatus, APIResponse{
		Success: false,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

// RespondWithError maps a typed error onto an HTTP status and writes the
// failure envelope. Callers that already know the status should use
// RespondError directly.
func RespondWithError(c *gin.Context, err error) {
	RespondError(c, StatusFromError(err), err.Error(), nil)
}

// StatusFromError maps error kinds to HTTP status codes. Bad input is the
// client's fault, composer failures are ours, and model failures belong to
// the upstream runtime.
func StatusFromError(err error) int {
	switch errors.KindOf(err) {
	case errors.KindValidation:
		return http.StatusBadRequest
	case errors.KindComposer:
		return http.StatusInternalServerError
	case errors.KindModel:
		return http.StatusBadGateway
	case errors.KindTransport:
		return http.StatusBadRequest
	case errors.KindConfig, errors.KindBootstrap:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
