package interfaces

import (
	"context"

	"github.com/ternarybob/zola/internal/models"
)

// ImagePoolStorage persists the random inspiration pool
type ImagePoolStorage interface {
	// Replace swaps the whole pool for images
	Replace(ctx context.Context, images []models.Image) error
	// All returns every pooled image
	All(ctx context.Context) ([]models.Image, error)
	Count(ctx context.Context) (int, error)
}
