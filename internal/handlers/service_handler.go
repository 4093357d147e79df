package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/zola/internal/interfaces"
	"github.com/ternarybob/zola/internal/models"
)

// ServiceHandler serves the image, itinerary and location endpoints used by
// the single-page client
type ServiceHandler struct {
	images    interfaces.ImageService
	locations interfaces.LocationService // nil when no place provider is configured
	itinerary interfaces.ItineraryService
	sessions  WorkspaceResolver
	logger    arbor.ILogger
}

func NewServiceHandler(
	images interfaces.ImageService,
	locations interfaces.LocationService,
	itinerary interfaces.ItineraryService,
	sessions WorkspaceResolver,
	logger arbor.ILogger,
) *ServiceHandler {
	return &ServiceHandler{
		images:    images,
		locations: locations,
		itinerary: itinerary,
		sessions:  sessions,
		logger:    logger,
	}
}

// GetImagesHandler searches images and records the search in the session
func (h *ServiceHandler) GetImagesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		WriteError(w, http.StatusBadRequest, "query is required")
		return
	}

	ws := h.sessions.Resolve(w, r)
	result := ws.Search(r.Context(), query)
	if !result.OK() {
		WriteError(w, http.StatusBadGateway, result.Message)
		return
	}

	WriteData(w, http.StatusOK, map[string]interface{}{"images": result.Value})
}

// GetRandomImagesHandler loads the session's default image set
func (h *ServiceHandler) GetRandomImagesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ws := h.sessions.Resolve(w, r)
	result := ws.LoadDefaultImages(r.Context())
	if !result.OK() {
		WriteError(w, http.StatusBadGateway, result.Message)
		return
	}

	WriteData(w, http.StatusOK, map[string]interface{}{"images": result.Value})
}

// CreateItineraryHandler generates an itinerary for the plan in the body
// without touching session state
func (h *ServiceHandler) CreateItineraryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var plan models.Plan
	if err := DecodeJSON(r, &plan, false); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := plan.Validate(); err != nil {
		WriteServiceError(w, err)
		return
	}
	plan.Normalize()

	result, err := h.itinerary.CreateItinerary(r.Context(), plan)
	if err != nil {
		h.logger.Error().Err(err).Str("location", plan.Location).Msg("Itinerary request failed")
		WriteServiceError(w, err)
		return
	}

	WriteData(w, http.StatusOK, result)
}

type locationsRequest struct {
	Queries []string `json:"queries"`
}

// GetLocationsHandler looks up places for free-text queries
func (h *ServiceHandler) GetLocationsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if h.locations == nil {
		WriteError(w, http.StatusServiceUnavailable, "place lookups are not configured")
		return
	}

	var req locationsRequest
	if err := DecodeJSON(r, &req, false); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Queries) == 0 {
		WriteError(w, http.StatusBadRequest, "queries is required")
		return
	}

	result, err := h.locations.GetLocations(r.Context(), req.Queries)
	if err != nil {
		h.logger.Error().Err(err).Int("queries", len(req.Queries)).Msg("Location lookup failed")
		WriteServiceError(w, err)
		return
	}

	WriteData(w, http.StatusOK, result)
}

type pinImageRequest struct {
	ImageID string `json:"imageId"`
}

// PinImageHandler returns the tags of an image
func (h *ServiceHandler) PinImageHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req pinImageRequest
	if err := DecodeJSON(r, &req, false); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ImageID) == "" {
		WriteError(w, http.StatusBadRequest, "imageId is required")
		return
	}

	tags, err := h.images.ImageTags(r.Context(), req.ImageID)
	if err != nil {
		h.logger.Warn().Err(err).Str("image_id", req.ImageID).Msg("Tag lookup failed")
		WriteServiceError(w, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}

	WriteData(w, http.StatusOK, map[string]interface{}{"tags": tags})
}
