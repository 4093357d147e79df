package badger

import (
	"context"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/zola/internal/models"
)

// PooledImage is the stored form of a pool entry
type PooledImage struct {
	ID          string `badgerhold:"key"`
	Position    int
	URL         string
	Description string
	AltText     string
	Tags        []string
	FetchedAt   time.Time
}

func (p PooledImage) toImage() models.Image {
	return models.Image{
		ID:          p.ID,
		URL:         p.URL,
		Description: p.Description,
		AltText:     p.AltText,
		Tags:        append([]string{}, p.Tags...),
	}
}

// ImagePoolStorage persists the random inspiration pool in Badger
type ImagePoolStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewImagePoolStorage creates a new ImagePoolStorage
func NewImagePoolStorage(db *BadgerDB, logger arbor.ILogger) *ImagePoolStorage {
	return &ImagePoolStorage{db: db, logger: logger}
}

// Replace removes every pooled image and stores images in their place.
// Duplicate ids are stored once.
func (s *ImagePoolStorage) Replace(ctx context.Context, images []models.Image) error {
	store := s.db.Store()
	unique := models.DedupeImages(images)
	now := time.Now()

	// one transaction so readers never see a half-replaced pool
	err := store.Badger().Update(func(tx *badgerdb.Txn) error {
		if err := store.TxDeleteMatching(tx, &PooledImage{}, badgerhold.Where("Position").Ge(0)); err != nil {
			return fmt.Errorf("failed to clear image pool: %w", err)
		}

		for i, img := range unique {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry := PooledImage{
				ID:          img.ID,
				Position:    i,
				URL:         img.URL,
				Description: img.Description,
				AltText:     img.AltText,
				Tags:        img.Tags,
				FetchedAt:   now,
			}
			if err := store.TxUpsert(tx, img.ID, &entry); err != nil {
				return fmt.Errorf("failed to store pooled image %s: %w", img.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug().Int("count", len(unique)).Msg("Image pool replaced")
	return nil
}

// All returns pooled images in insertion order
func (s *ImagePoolStorage) All(ctx context.Context) ([]models.Image, error) {
	var entries []PooledImage
	if err := s.db.Store().Find(&entries, badgerhold.Where("Position").Ge(0).SortBy("Position")); err != nil {
		return nil, fmt.Errorf("failed to list image pool: %w", err)
	}

	images := make([]models.Image, 0, len(entries))
	for _, e := range entries {
		images = append(images, e.toImage())
	}
	return images, nil
}

// Count returns the number of pooled images
func (s *ImagePoolStorage) Count(ctx context.Context) (int, error) {
	n, err := s.db.Store().Count(&PooledImage{}, badgerhold.Where("Position").Ge(0))
	if err != nil {
		return 0, fmt.Errorf("failed to count image pool: %w", err)
	}
	return int(n), nil
}
