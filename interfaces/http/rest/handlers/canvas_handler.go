package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storycanvas/application/collab"
	"storycanvas/domain/core/aggregates"
	"storycanvas/domain/core/entities"
	"storycanvas/domain/rendering"
	"storycanvas/pkg/auth"
	"storycanvas/pkg/common"
	"storycanvas/pkg/utils"
)

// CanvasHandler handles canvas-level HTTP requests
type CanvasHandler struct {
	coordinator    *collab.Coordinator
	viewportBuffer float64
	logger         *zap.Logger
}

// NewCanvasHandler creates a new canvas handler. viewportBuffer is the
// cull margin applied when a request does not specify one.
func NewCanvasHandler(coordinator *collab.Coordinator, viewportBuffer float64, logger *zap.Logger) *CanvasHandler {
	return &CanvasHandler{coordinator: coordinator, viewportBuffer: viewportBuffer, logger: logger}
}

// CanvasResponse is the full state of an opened canvas
type CanvasResponse struct {
	StoryID     string                `json:"storyId"`
	CanvasID    string                `json:"canvasId"`
	Nodes       []entities.Node       `json:"nodes"`
	Connections []entities.Connection `json:"connections"`
	Version     int64                 `json:"version"`
	UpdatedAt   int64                 `json:"updatedAt"`
}

// OpenCanvas handles GET /stories/{storyID}/canvases/{canvasID}.
// Opening instantiates the canvas from its template on first ever
// access; afterwards it always loads the saved state.
func (h *CanvasHandler) OpenCanvas(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "storyID")
	canvasID := aggregates.CanvasID(chi.URLParam(r, "canvasID"))
	ownerKind := entities.NodeKind(r.URL.Query().Get("ownerKind"))

	sess, err := h.coordinator.Open(r.Context(), storyID, canvasID, ownerKind)
	if err != nil {
		h.logger.Error("failed to open canvas",
			zap.String("story_id", storyID),
			zap.String("canvas_id", canvasID.String()),
			zap.Error(err),
		)
		common.RespondAppError(w, err)
		return
	}

	snap := sess.Snapshot()
	common.RespondJSON(w, http.StatusOK, CanvasResponse{
		StoryID:     snap.StoryID,
		CanvasID:    snap.CanvasID.String(),
		Nodes:       snap.Nodes,
		Connections: snap.Connections,
		Version:     snap.Version,
		UpdatedAt:   snap.UpdatedAt,
	})
}

// ListCanvases handles GET /stories/{storyID}/canvases
func (h *CanvasHandler) ListCanvases(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "storyID")

	ids, err := h.coordinator.Manager().ListCanvases(r.Context(), storyID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{"canvases": out})
}

// CloseCanvas handles DELETE /stories/{storyID}/canvases/{canvasID}/session
// and flushes pending state before releasing the session
func (h *CanvasHandler) CloseCanvas(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "storyID")
	canvasID := aggregates.CanvasID(chi.URLParam(r, "canvasID"))

	if err := h.coordinator.Close(r.Context(), storyID, canvasID); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"message": "canvas session closed"})
}

// CullRequest describes a client viewport asking which elements to draw.
// Buffer is optional; omitting it uses the server default, and an
// explicit 0 disables the margin entirely.
type CullRequest struct {
	OffsetX     float64  `json:"offsetX"`
	OffsetY     float64  `json:"offsetY"`
	Scale       float64  `json:"scale" validate:"required,gt=0"`
	Width       float64  `json:"width" validate:"required,gt=0"`
	Height      float64  `json:"height" validate:"required,gt=0"`
	Buffer      *float64 `json:"buffer" validate:"omitempty,gte=0"`
	Interacting bool     `json:"interacting"`
}

// CullResponse is the renderable subset for one frame
type CullResponse struct {
	Nodes       []entities.Node       `json:"nodes"`
	Connections []entities.Connection `json:"connections"`
	DetailTier  string                `json:"detailTier"`
	Total       int                   `json:"total"`
}

// CullViewport handles POST /stories/{storyID}/canvases/{canvasID}/cull
func (h *CanvasHandler) CullViewport(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "storyID")
	canvasID := aggregates.CanvasID(chi.URLParam(r, "canvasID"))

	var req CullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	sess, err := h.coordinator.Open(r.Context(), storyID, canvasID, "")
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	snap := sess.Snapshot()

	buffer := h.viewportBuffer
	if req.Buffer != nil {
		buffer = *req.Buffer
	}
	result := rendering.Cull(snap.Nodes, snap.Connections, rendering.Viewport{
		OffsetX: req.OffsetX,
		OffsetY: req.OffsetY,
		Scale:   req.Scale,
		Width:   req.Width,
		Height:  req.Height,
		Buffer:  buffer,
	}, req.Interacting)

	common.RespondJSON(w, http.StatusOK, CullResponse{
		Nodes:       result.Nodes,
		Connections: result.Connections,
		DetailTier:  result.Tier.String(),
		Total:       len(snap.Nodes),
	})
}

func requestUserID(r *http.Request) string {
	if user, ok := auth.GetUserFromContext(r.Context()); ok {
		return user.UserID
	}
	return ""
}
