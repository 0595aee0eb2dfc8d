package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	syncing func() bool
}

// NewHealthHandler creates a new health handler. syncing may be nil.
func NewHealthHandler(syncing func() bool) *HealthHandler {
	return &HealthHandler{syncing: syncing}
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if h.syncing != nil {
		resp["syncing"] = h.syncing()
	}
	c.JSON(http.StatusOK, resp)
}
