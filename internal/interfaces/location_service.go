package interfaces

import (
	"context"

	"github.com/ternarybob/zola/internal/models"
)

// LocationService resolves free-text queries to places
type LocationService interface {
	GetLocations(ctx context.Context, queries []string) (*models.LocationsResult, error)
}
