package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/amtracker/internal/service"
)

// SnapshotHandler exports and restores the synced catalog state.
type SnapshotHandler struct {
	snapshots *service.SnapshotService
}

// NewSnapshotHandler creates a new snapshot handler.
func NewSnapshotHandler(snapshotService *service.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{snapshots: snapshotService}
}

// RestoreRequest names the snapshot object to import.
type RestoreRequest struct {
	Key string `json:"key" binding:"required"`
}

// ListSnapshots handles GET /api/v1/snapshots.
func (h *SnapshotHandler) ListSnapshots(c *gin.Context) {
	objects, err := h.snapshots.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": objects, "total": len(objects)})
}

// ExportSnapshot handles POST /api/v1/snapshots.
func (h *SnapshotHandler) ExportSnapshot(c *gin.Context) {
	key, snap, err := h.snapshots.Export(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"key":          key,
		"exported_at":  snap.ExportedAt,
		"remote_total": len(snap.Remote),
	})
}

// RestoreSnapshot handles POST /api/v1/snapshots/restore.
func (h *SnapshotHandler) RestoreSnapshot(c *gin.Context) {
	var req RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	snap, err := h.snapshots.Import(c.Request.Context(), req.Key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"key":          req.Key,
		"mode":         snap.Mode,
		"cursor":       snap.Cursor,
		"remote_total": len(snap.Remote),
	})
}
