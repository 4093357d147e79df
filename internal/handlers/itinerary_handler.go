package handlers

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/zola/internal/models"
)

// ItineraryRenderer renders itinerary markdown for display and download
type ItineraryRenderer interface {
	ItineraryHTML(markdown string) (string, error)
	ItineraryPDF(ctx context.Context, plan models.Plan) ([]byte, error)
}

// ItineraryHandler serves the session itinerary
type ItineraryHandler struct {
	sessions WorkspaceResolver
	renderer ItineraryRenderer
	logger   arbor.ILogger
}

func NewItineraryHandler(sessions WorkspaceResolver, renderer ItineraryRenderer, logger arbor.ILogger) *ItineraryHandler {
	return &ItineraryHandler{
		sessions: sessions,
		renderer: renderer,
		logger:   logger,
	}
}

type itineraryResponse struct {
	Itinerary string         `json:"itinerary"`
	HTML      string         `json:"html"`
	Locations []models.Place `json:"locations"`
}

// ItineraryHandler handles GET /api/itinerary
func (h *ItineraryHandler) ItineraryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	plan := h.sessions.Resolve(w, r).Plans.Current()
	if plan == nil || plan.Itinerary == nil {
		WriteError(w, http.StatusNotFound, models.ErrNoItinerary.Error())
		return
	}

	html, err := h.renderer.ItineraryHTML(*plan.Itinerary)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to render itinerary HTML")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	locations := plan.Locations
	if locations == nil {
		locations = []models.Place{}
	}
	WriteData(w, http.StatusOK, itineraryResponse{
		Itinerary: *plan.Itinerary,
		HTML:      html,
		Locations: locations,
	})
}

var unsafeFilename = regexp.MustCompile(`[^a-z0-9]+`)

// PDFHandler handles GET /api/itinerary/pdf
func (h *ItineraryHandler) PDFHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	plan := h.sessions.Resolve(w, r).Plans.Current()
	if plan == nil {
		WriteError(w, http.StatusNotFound, models.ErrNoItinerary.Error())
		return
	}

	data, err := h.renderer.ItineraryPDF(r.Context(), *plan)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	name := strings.Trim(unsafeFilename.ReplaceAllString(strings.ToLower(plan.Location), "-"), "-")
	if name == "" {
		name = "trip"
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-itinerary.pdf"`, name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to write itinerary PDF")
	}
}
