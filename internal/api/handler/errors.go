package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/amtracker/internal/domain"
	"github.com/timmy/amtracker/internal/logger"
	"github.com/timmy/amtracker/internal/service"
	"github.com/timmy/amtracker/internal/storage"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, storage.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrFiltered):
		return http.StatusUnprocessableEntity
	case domain.IsRemoteFetchError(err):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status and logs server-side failures.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	ctx := c.Request.Context()
	if status >= http.StatusInternalServerError {
		logger.CtxError(ctx, "Request failed: path=%s, status=%d, error=%v", c.FullPath(), status, err)
	} else {
		logger.CtxWarn(ctx, "Request rejected: path=%s, status=%d, error=%v", c.FullPath(), status, err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	logger.CtxWarn(c.Request.Context(), "Invalid request: path=%s, client_ip=%s, error=%s", c.FullPath(), c.ClientIP(), msg)
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
