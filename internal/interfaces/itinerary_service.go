package interfaces

import (
	"context"

	"github.com/ternarybob/zola/internal/models"
)

// ItineraryService turns a plan snapshot into a markdown itinerary and
// recommended places
type ItineraryService interface {
	CreateItinerary(ctx context.Context, plan models.Plan) (*models.ItineraryResult, error)
}

// ExportService renders a plan into a downloadable document
type ExportService interface {
	ItineraryPDF(ctx context.Context, plan models.Plan) ([]byte, error)
}
