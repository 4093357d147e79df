package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - image, itinerary and place services
	mux.HandleFunc("/api/get-images", s.app.ServiceHandler.GetImagesHandler)              // GET ?query=
	mux.HandleFunc("/api/get-random-images", s.app.ServiceHandler.GetRandomImagesHandler) // GET
	mux.HandleFunc("/api/create-itinerary", s.app.ServiceHandler.CreateItineraryHandler)  // POST plan
	mux.HandleFunc("/api/get-locations", s.app.ServiceHandler.GetLocationsHandler)        // POST {queries}
	mux.HandleFunc("/api/pin-image", s.app.ServiceHandler.PinImageHandler)                // POST {imageId}

	// API routes - session plan
	mux.HandleFunc("/api/plan", s.app.PlanHandler.PlanHandler) // GET/PUT/PATCH/DELETE
	mux.HandleFunc("/api/plan/", s.handlePlanRoutes)

	// API routes - session gallery
	mux.HandleFunc("/api/gallery", s.app.GalleryHandler.GalleryHandler)
	mux.HandleFunc("/api/gallery/search", s.app.GalleryHandler.ClearSearchHandler) // DELETE
	mux.HandleFunc("/api/images", s.app.GalleryHandler.ImagesHandler)
	mux.HandleFunc("/api/images/selection", s.app.GalleryHandler.SelectionHandler) // POST/DELETE

	// API routes - itinerary
	mux.HandleFunc("/api/itinerary", s.app.ItineraryHandler.ItineraryHandler)
	mux.HandleFunc("/api/itinerary/pdf", s.app.ItineraryHandler.PDFHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handlePlanRoutes routes /api/plan/* requests
func (s *Server) handlePlanRoutes(w http.ResponseWriter, r *http.Request) {
	h := s.app.PlanHandler
	matched := RouteByPath(w, r, []PathRoute{
		{Path: "/api/plan/images", Handler: h.AddImagesHandler},           // POST {images}
		{Path: "/api/plan/images/", Handler: h.RemoveImageHandler},        // DELETE /{id}
		{Path: "/api/plan/pins/", Handler: h.TogglePinHandler},            // POST /{id}
		{Path: "/api/plan/generate", Handler: h.GenerateHandler},          // POST [?async=true]
		{Path: "/api/plan/generation", Handler: h.GenerationStateHandler}, // GET
	})
	if !matched {
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}
