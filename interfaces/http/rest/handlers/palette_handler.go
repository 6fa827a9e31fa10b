package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storycanvas/application/collab"
	"storycanvas/domain/core/aggregates"
	"storycanvas/domain/palette"
	"storycanvas/pkg/common"
	"storycanvas/pkg/utils"
)

// PaletteHandler handles color theme generation and resolution
type PaletteHandler struct {
	resolver    *palette.Resolver
	coordinator *collab.Coordinator
	logger      *zap.Logger
}

// NewPaletteHandler creates a new palette handler
func NewPaletteHandler(resolver *palette.Resolver, coordinator *collab.Coordinator, logger *zap.Logger) *PaletteHandler {
	return &PaletteHandler{resolver: resolver, coordinator: coordinator, logger: logger}
}

// GenerateRequest asks for a palette derived from a base color
type GenerateRequest struct {
	H         float64 `json:"h" validate:"gte=0,lt=360"`
	S         float64 `json:"s" validate:"gte=0,lte=1"`
	L         float64 `json:"l" validate:"gte=0,lte=1"`
	HueAdjust float64 `json:"hueAdjust"`
}

// GenerateResponse carries the derived palette and both role variants
type GenerateResponse struct {
	Palette palette.Palette `json:"palette"`
	Light   palette.Roles   `json:"light"`
	Dark    palette.Roles   `json:"dark"`
}

// Generate handles POST /palettes/generate
func (h *PaletteHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	pal := palette.Generate(palette.HSL{H: req.H, S: req.S, L: req.L}, req.HueAdjust)
	common.RespondJSON(w, http.StatusOK, GenerateResponse{
		Palette: pal,
		Light:   pal.Variant(palette.AppearanceLight),
		Dark:    pal.Variant(palette.AppearanceDark),
	})
}

// Resolve handles GET /stories/{storyID}/canvases/{canvasID}/palette.
// The appearance query parameter selects light or dark role assignment.
func (h *PaletteHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	appearance := palette.Appearance(r.URL.Query().Get("appearance"))

	pal := h.resolver.Resolve(palette.Context{
		CanvasID:   chi.URLParam(r, "canvasID"),
		StoryID:    chi.URLParam(r, "storyID"),
		Appearance: appearance,
	})
	if appearance == "" {
		appearance = palette.AppearanceLight
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"palette": pal,
		"roles":   pal.Variant(appearance),
	})
}

// SetCanvasPalette handles PUT /stories/{storyID}/canvases/{canvasID}/palette.
// The palette is scoped to the canvas and persisted with its snapshot.
func (h *PaletteHandler) SetCanvasPalette(w http.ResponseWriter, r *http.Request) {
	var pal palette.Palette
	if err := json.NewDecoder(r.Body).Decode(&pal); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "Invalid request body: "+err.Error())
		return
	}

	storyID := chi.URLParam(r, "storyID")
	canvasID := aggregates.CanvasID(chi.URLParam(r, "canvasID"))

	sess, err := h.coordinator.Open(r.Context(), storyID, canvasID, "")
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	sess.SetPalette(&pal)
	h.resolver.SetFolderPalette(canvasID.String(), pal)

	common.RespondJSON(w, http.StatusOK, map[string]string{"message": "palette updated"})
}

// SetProjectPalette handles PUT /stories/{storyID}/palette
func (h *PaletteHandler) SetProjectPalette(w http.ResponseWriter, r *http.Request) {
	var pal palette.Palette
	if err := json.NewDecoder(r.Body).Decode(&pal); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "Invalid request body: "+err.Error())
		return
	}
	h.resolver.SetProjectPalette(chi.URLParam(r, "storyID"), pal)
	common.RespondJSON(w, http.StatusOK, map[string]string{"message": "palette updated"})
}
