package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/zola/internal/store"
)

// GalleryHandler serves the session gallery and image selection
type GalleryHandler struct {
	sessions WorkspaceResolver
	logger   arbor.ILogger
}

func NewGalleryHandler(sessions WorkspaceResolver, logger arbor.ILogger) *GalleryHandler {
	return &GalleryHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// GalleryHandler handles GET /api/gallery. The default set is loaded on first
// view.
func (h *GalleryHandler) GalleryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ws := h.sessions.Resolve(w, r)
	if len(ws.Images.Images()) == 0 && ws.Images.SearchState().Status == store.SearchNotSearched {
		ws.LoadDefaultImages(r.Context())
	}

	WriteData(w, http.StatusOK, ws.Gallery())
}

// ClearSearchHandler handles DELETE /api/gallery/search
func (h *GalleryHandler) ClearSearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	ws := h.sessions.Resolve(w, r)
	ws.Images.ClearSearch()
	WriteData(w, http.StatusOK, ws.Gallery())
}

// ImagesHandler handles GET /api/images
func (h *GalleryHandler) ImagesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ws := h.sessions.Resolve(w, r)
	WriteData(w, http.StatusOK, map[string]interface{}{
		"images":   ws.Images.Images(),
		"selected": ws.Images.SelectedImages(),
	})
}

type selectionRequest struct {
	URL      string `json:"url"`
	Selected bool   `json:"selected"`
}

// SelectionHandler handles POST (select/deselect one) and DELETE (clear)
// on /api/images/selection
func (h *GalleryHandler) SelectionHandler(w http.ResponseWriter, r *http.Request) {
	ws := h.sessions.Resolve(w, r)

	switch r.Method {
	case http.MethodPost:
		var req selectionRequest
		if err := DecodeJSON(r, &req, false); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.URL == "" {
			WriteError(w, http.StatusBadRequest, "url is required")
			return
		}
		if req.Selected {
			ws.Images.SelectImage(req.URL)
		} else {
			ws.Images.DeselectImage(req.URL)
		}
	case http.MethodDelete:
		ws.Images.ClearSelectedImages()
	default:
		w.Header().Set("Allow", "POST, DELETE")
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	WriteData(w, http.StatusOK, map[string]interface{}{"selected": ws.Images.SelectedImages()})
}
