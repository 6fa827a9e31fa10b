package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storycanvas/application/collab"
	"storycanvas/domain/core/aggregates"
	"storycanvas/infrastructure/realtime"
	"storycanvas/pkg/common"
)

// WSHandler upgrades clients into canvas rooms
type WSHandler struct {
	hub         *realtime.Hub
	coordinator *collab.Coordinator
	logger      *zap.Logger
}

// NewWSHandler creates a new websocket handler
func NewWSHandler(hub *realtime.Hub, coordinator *collab.Coordinator, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, coordinator: coordinator, logger: logger}
}

// Connect handles GET /stories/{storyID}/canvases/{canvasID}/ws. The
// canvas session is opened before the upgrade so the room's sync engine
// is running by the time the first client frame arrives.
func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "storyID")
	canvasID := aggregates.CanvasID(chi.URLParam(r, "canvasID"))
	userID := requestUserID(r)

	if _, err := h.coordinator.Open(r.Context(), storyID, canvasID, ""); err != nil {
		common.RespondAppError(w, err)
		return
	}

	if err := realtime.ServeWS(h.hub, w, r, storyID, canvasID.String(), userID, h.logger); err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("story_id", storyID),
			zap.String("canvas_id", canvasID.String()),
			zap.Error(err),
		)
	}
}
