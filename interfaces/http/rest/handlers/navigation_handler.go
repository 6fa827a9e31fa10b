package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storycanvas/application/collab"
	"storycanvas/application/navigation"
	"storycanvas/domain/core/aggregates"
	"storycanvas/domain/core/entities"
	"storycanvas/domain/core/valueobjects"
	"storycanvas/pkg/common"
	"storycanvas/pkg/utils"
)

// NavigationHandler handles the per-user canvas navigation state
type NavigationHandler struct {
	store       *navigation.Store
	coordinator *collab.Coordinator
	logger      *zap.Logger
}

// NewNavigationHandler creates a new navigation handler
func NewNavigationHandler(store *navigation.Store, coordinator *collab.Coordinator, logger *zap.Logger) *NavigationHandler {
	return &NavigationHandler{store: store, coordinator: coordinator, logger: logger}
}

// NavigationState is the client-facing navigation snapshot
type NavigationState struct {
	ActiveCanvasID string             `json:"activeCanvasId"`
	Breadcrumb     []navigation.Crumb `json:"breadcrumb"`
	Depth          int                `json:"depth"`
}

// GetState handles GET /stories/{storyID}/navigation
func (h *NavigationHandler) GetState(w http.ResponseWriter, r *http.Request) {
	tree := h.treeFor(r)
	common.RespondJSON(w, http.StatusOK, NavigationState{
		ActiveCanvasID: tree.Active().String(),
		Breadcrumb:     tree.Breadcrumb(),
		Depth:          tree.Depth(),
	})
}

// EnterFolderRequest asks to descend through a folder node
type EnterFolderRequest struct {
	FolderID string `json:"folderId" validate:"required"`
}

// EnterFolder handles POST /stories/{storyID}/navigation/enter. The
// folder must exist on the active canvas and link a child canvas; the
// child canvas is opened (instantiating it on first visit) before the
// navigation state moves.
func (h *NavigationHandler) EnterFolder(w http.ResponseWriter, r *http.Request) {
	var req EnterFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	storyID := chi.URLParam(r, "storyID")
	tree := h.treeFor(r)

	active, err := h.coordinator.Open(r.Context(), storyID, tree.Active(), "")
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	folderID, err := valueobjects.NewNodeIDFromString(req.FolderID)
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	var folderNode *NavigationFolder
	for _, node := range active.Snapshot().Nodes {
		if node.ID.Equals(folderID) {
			if !node.IsFolder() || node.LinkedCanvasID == "" {
				common.RespondError(w, http.StatusBadRequest, "VALIDATION", "node does not link a canvas")
				return
			}
			folderNode = &NavigationFolder{
				CanvasID: aggregates.CanvasID(node.LinkedCanvasID),
				Kind:     node.Kind,
				Title:    node.Title,
			}
			break
		}
	}
	if folderNode == nil {
		common.RespondError(w, http.StatusNotFound, "NOT_FOUND", "folder node not found on active canvas")
		return
	}

	if _, err := h.coordinator.Open(r.Context(), storyID, folderNode.CanvasID, folderNode.Kind); err != nil {
		common.RespondAppError(w, err)
		return
	}
	if err := tree.NavigateInto(folderNode.CanvasID, folderID, folderNode.Title); err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, NavigationState{
		ActiveCanvasID: tree.Active().String(),
		Breadcrumb:     tree.Breadcrumb(),
		Depth:          tree.Depth(),
	})
}

// NavigationFolder captures the door a navigation step passes through
type NavigationFolder struct {
	CanvasID aggregates.CanvasID
	Kind     entities.NodeKind
	Title    string
}

// JumpBreadcrumb handles POST /stories/{storyID}/navigation/breadcrumb/{index}.
// Index -1 returns to the root canvas.
func (h *NavigationHandler) JumpBreadcrumb(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "breadcrumb index must be an integer")
		return
	}

	tree := h.treeFor(r)
	if _, err := tree.NavigateToBreadcrumb(index); err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, NavigationState{
		ActiveCanvasID: tree.Active().String(),
		Breadcrumb:     tree.Breadcrumb(),
		Depth:          tree.Depth(),
	})
}

func (h *NavigationHandler) treeFor(r *http.Request) *navigation.Tree {
	return h.store.TreeFor(requestUserID(r), chi.URLParam(r, "storyID"))
}
