package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/zola/internal/models"
	"github.com/ternarybob/zola/internal/services/planner"
)

// PlanHandler exposes the session plan store and the generation flow
type PlanHandler struct {
	sessions WorkspaceResolver
	logger   arbor.ILogger
}

func NewPlanHandler(sessions WorkspaceResolver, logger arbor.ILogger) *PlanHandler {
	return &PlanHandler{
		sessions: sessions,
		logger:   logger,
	}
}

type planResponse struct {
	Plan    *models.Plan `json:"plan"`
	Version uint64       `json:"version"`
}

func writePlan(w http.ResponseWriter, ws *planner.Workspace) {
	WriteData(w, http.StatusOK, planResponse{Plan: ws.Plans.Current(), Version: ws.Plans.Version()})
}

// PlanHandler handles GET/PUT/PATCH/DELETE /api/plan
func (h *PlanHandler) PlanHandler(w http.ResponseWriter, r *http.Request) {
	ws := h.sessions.Resolve(w, r)

	switch r.Method {
	case http.MethodGet:
		writePlan(w, ws)

	case http.MethodPut:
		var plan models.Plan
		if err := DecodeJSON(r, &plan, false); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := plan.Validate(); err != nil {
			WriteServiceError(w, err)
			return
		}
		ws.Plans.SetCurrentPlan(plan)
		writePlan(w, ws)

	case http.MethodPatch:
		var update models.PlanUpdate
		if err := DecodeJSON(r, &update, false); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := update.Validate(); err != nil {
			WriteServiceError(w, err)
			return
		}
		if !ws.Plans.UpdateCurrentPlan(update) && ws.Plans.Current() == nil {
			WriteError(w, http.StatusNotFound, models.ErrNoPlan.Error())
			return
		}
		writePlan(w, ws)

	case http.MethodDelete:
		ws.Plans.ClearCurrentPlan()
		writePlan(w, ws)

	default:
		w.Header().Set("Allow", "GET, PUT, PATCH, DELETE")
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

type addImagesRequest struct {
	Images []models.Image `json:"images"`
}

// AddImagesHandler handles POST /api/plan/images
func (h *PlanHandler) AddImagesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req addImagesRequest
	if err := DecodeJSON(r, &req, false); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, img := range req.Images {
		if strings.TrimSpace(img.ID) == "" {
			WriteError(w, http.StatusBadRequest, "every image needs an id")
			return
		}
	}

	ws := h.sessions.Resolve(w, r)
	ws.Plans.AddImagesToCurrentPlan(req.Images)
	writePlan(w, ws)
}

// RemoveImageHandler handles DELETE /api/plan/images/{id}
func (h *PlanHandler) RemoveImageHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	id := PathParam(r.URL.Path, "/api/plan/images/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "image id is required")
		return
	}

	ws := h.sessions.Resolve(w, r)
	ws.Plans.RemoveImageFromCurrentPlan(id)
	writePlan(w, ws)
}

// TogglePinHandler handles POST /api/plan/pins/{id}. The body may carry the
// image itself; otherwise it is looked up in the session gallery.
func (h *PlanHandler) TogglePinHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	id := PathParam(r.URL.Path, "/api/plan/pins/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "image id is required")
		return
	}

	var supplied *models.Image
	var body models.Image
	if err := DecodeJSON(r, &body, true); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.URL != "" || body.ID != "" {
		supplied = &body
	}

	ws := h.sessions.Resolve(w, r)
	result, err := ws.TogglePin(r.Context(), id, supplied)
	if err != nil {
		if errors.Is(err, models.ErrImageNotFound) {
			WriteServiceError(w, err)
			return
		}
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteData(w, http.StatusOK, map[string]interface{}{
		"pin":     result,
		"plan":    ws.Plans.Current(),
		"version": ws.Plans.Version(),
	})
}

// GenerateHandler handles POST /api/plan/generate[?async=true]
func (h *PlanHandler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var params models.TripParams
	if err := DecodeJSON(r, &params, false); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ws := h.sessions.Resolve(w, r)

	if r.URL.Query().Get("async") == "true" {
		seq, err := ws.GenerateAsync(params)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteStarted(w, map[string]interface{}{"seq": seq})
		return
	}

	outcome, err := ws.Generate(r.Context(), params)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteData(w, http.StatusOK, outcome)
}

// GenerationStateHandler handles GET /api/plan/generation
func (h *PlanHandler) GenerationStateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ws := h.sessions.Resolve(w, r)
	WriteData(w, http.StatusOK, ws.GenerationState())
}
