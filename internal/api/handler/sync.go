package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/amtracker/internal/domain"
	"github.com/timmy/amtracker/internal/logger"
	"github.com/timmy/amtracker/internal/service"
)

// SyncHandler exposes the sync core: fetch-more, status and the state mutations.
type SyncHandler struct {
	sync *service.SyncService
}

// NewSyncHandler creates a new sync handler.
// Parameters:
//   - syncService: sync service instance.
// Returns:
//   - *SyncHandler: initialized handler.
func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{sync: syncService}
}

// ModeRequest represents the change-mode request body.
type ModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// SyncResponse represents the sync API response.
type SyncResponse struct {
	Message string               `json:"message"`
	Summary *service.SyncSummary `json:"summary,omitempty"`
}

// TriggerSync handles POST /api/v1/sync.
// The batch runs to completion even if the client disconnects; nothing is
// persisted unless every page succeeds.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	ctx := c.Request.Context()
	logger.CtxInfo(ctx, "Received sync request: client_ip=%s", c.ClientIP())

	summary, err := h.sync.SyncMore(context.WithoutCancel(ctx))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SyncResponse{
		Message: "Sync completed successfully",
		Summary: summary,
	})
}

// GetStatus handles GET /api/v1/sync/status.
func (h *SyncHandler) GetStatus(c *gin.Context) {
	status, err := h.sync.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// ChangeMode handles PUT /api/v1/sync/mode. The cursor is reset in the same write.
func (h *SyncHandler) ChangeMode(c *gin.Context) {
	var req ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	if err := h.sync.ChangeCrawlMode(ctx, domain.SortMode(req.Mode)); err != nil {
		respondError(c, err)
		return
	}
	logger.CtxInfo(ctx, "Crawl mode changed: mode=%s, client_ip=%s", req.Mode, c.ClientIP())
	h.GetStatus(c)
}

// ResetCursor handles POST /api/v1/sync/reset.
func (h *SyncHandler) ResetCursor(c *gin.Context) {
	if err := h.sync.ResetCursor(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	h.GetStatus(c)
}

// ClearRemote handles DELETE /api/v1/sync/remote.
func (h *SyncHandler) ClearRemote(c *gin.Context) {
	if err := h.sync.ClearRemote(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	h.GetStatus(c)
}
