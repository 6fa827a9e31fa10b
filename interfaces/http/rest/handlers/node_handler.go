package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storycanvas/application/collab"
	"storycanvas/application/session"
	"storycanvas/domain/core/aggregates"
	"storycanvas/domain/core/entities"
	"storycanvas/domain/core/valueobjects"
	"storycanvas/pkg/common"
	"storycanvas/pkg/utils"
)

// NodeHandler handles node and connection mutations on an open canvas
type NodeHandler struct {
	coordinator *collab.Coordinator
	logger      *zap.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(coordinator *collab.Coordinator, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{coordinator: coordinator, logger: logger}
}

// CreateNodeRequest represents the request body for creating a node
type CreateNodeRequest struct {
	ID             string          `json:"id" validate:"required,min=1,max=256"`
	Kind           string          `json:"kind" validate:"required"`
	X              float64         `json:"x"`
	Y              float64         `json:"y"`
	Width          float64         `json:"width" validate:"gte=0"`
	Height         float64         `json:"height" validate:"gte=0"`
	Title          string          `json:"title,omitempty" validate:"omitempty,max=500"`
	Content        json.RawMessage `json:"content,omitempty"`
	ParentID       string          `json:"parentId,omitempty"`
	LinkedCanvasID string          `json:"linkedCanvasId,omitempty"`
}

// CreateNode handles POST /stories/{storyID}/canvases/{canvasID}/nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	nodeID, err := valueobjects.NewNodeIDFromString(req.ID)
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	node := entities.Node{
		ID:             nodeID,
		Kind:           entities.NodeKind(req.Kind),
		X:              req.X,
		Y:              req.Y,
		Width:          req.Width,
		Height:         req.Height,
		Title:          req.Title,
		Content:        req.Content,
		LinkedCanvasID: req.LinkedCanvasID,
	}
	if req.ParentID != "" {
		parentID, err := valueobjects.NewNodeIDFromString(req.ParentID)
		if err != nil {
			common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
			return
		}
		node.ParentID = parentID
	}

	sess, err := h.openSession(r)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	if err := sess.AddNode(r.Context(), node, requestUserID(r)); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

// UpdateNode handles PATCH /stories/{storyID}/canvases/{canvasID}/nodes/{nodeID}.
// The body is a partial node; omitted fields are left untouched.
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	nodeID, err := valueobjects.NewNodeIDFromString(chi.URLParam(r, "nodeID"))
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	var patch entities.NodePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "Invalid request body: "+err.Error())
		return
	}

	sess, err := h.openSession(r)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	if err := sess.UpdateNode(r.Context(), nodeID, patch, requestUserID(r)); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"id": nodeID.String()})
}

// DeleteNode handles DELETE /stories/{storyID}/canvases/{canvasID}/nodes/{nodeID}
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	nodeID, err := valueobjects.NewNodeIDFromString(chi.URLParam(r, "nodeID"))
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	sess, err := h.openSession(r)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	if err := sess.DeleteNode(r.Context(), nodeID, requestUserID(r)); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"id": nodeID.String()})
}

// CreateConnectionRequest represents the request body for creating a connection
type CreateConnectionRequest struct {
	ID   string `json:"id" validate:"required,min=1,max=256"`
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
	Type string `json:"type" validate:"required,max=100"`
}

// CreateConnection handles POST /stories/{storyID}/canvases/{canvasID}/connections
func (h *NodeHandler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var req CreateConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	connID, err := valueobjects.NewConnectionIDFromString(req.ID)
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	from, err := valueobjects.NewNodeIDFromString(req.From)
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	to, err := valueobjects.NewNodeIDFromString(req.To)
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	sess, err := h.openSession(r)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	conn := entities.Connection{ID: connID, From: from, To: to, Type: req.Type}
	if err := sess.AddConnection(r.Context(), conn, requestUserID(r)); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

// DeleteConnection handles DELETE /stories/{storyID}/canvases/{canvasID}/connections/{connectionID}
func (h *NodeHandler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	connID, err := valueobjects.NewConnectionIDFromString(chi.URLParam(r, "connectionID"))
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	sess, err := h.openSession(r)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	if err := sess.DeleteConnection(r.Context(), connID, requestUserID(r)); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"id": connID.String()})
}

func (h *NodeHandler) openSession(r *http.Request) (*session.CanvasSession, error) {
	storyID := chi.URLParam(r, "storyID")
	canvasID := aggregates.CanvasID(chi.URLParam(r, "canvasID"))
	return h.coordinator.Open(r.Context(), storyID, canvasID, "")
}
