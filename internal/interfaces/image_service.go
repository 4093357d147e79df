package interfaces

import (
	"context"

	"github.com/ternarybob/zola/internal/models"
)

// ImageService searches for inspiration images
type ImageService interface {
	// SearchImages returns images matching a free-text query
	SearchImages(ctx context.Context, query string) ([]models.Image, error)

	// RandomImages returns up to count random images
	RandomImages(ctx context.Context, count int) ([]models.Image, error)

	// ImageTags returns the tags of a single image
	ImageTags(ctx context.Context, imageID string) ([]string, error)
}

// ImagePool serves the default gallery set from a warm, persisted pool
type ImagePool interface {
	// Sample returns up to n images chosen at random from the pool
	Sample(ctx context.Context, n int) ([]models.Image, error)

	// Count returns the number of pooled images
	Count(ctx context.Context) (int, error)
}
