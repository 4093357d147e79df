// Package pool keeps a persisted pool of random images so the default gallery
// does not need a live image request per session.
package pool

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/zola/internal/common"
	"github.com/ternarybob/zola/internal/interfaces"
	"github.com/ternarybob/zola/internal/models"
)

// Service implements interfaces.ImagePool
type Service struct {
	storage  interfaces.ImagePoolStorage
	images   interfaces.ImageService
	size     int
	schedule string
	logger   arbor.ILogger

	cron        *cron.Cron
	mu          sync.Mutex
	running     bool
	refreshing  bool
	lastRefresh time.Time
}

var _ interfaces.ImagePool = (*Service)(nil)

// NewService creates a pool service
func NewService(storage interfaces.ImagePoolStorage, images interfaces.ImageService, cfg common.ImagePoolConfig, logger arbor.ILogger) *Service {
	size := cfg.Size
	if size <= 0 {
		size = 150
	}
	schedule := cfg.RefreshSchedule
	if schedule == "" {
		schedule = "0 */6 * * *"
	}
	return &Service{
		storage:  storage,
		images:   images,
		size:     size,
		schedule: schedule,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Refresh replaces the pool with a fresh set of random images. A failed fetch
// keeps the existing pool.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return 0, fmt.Errorf("image pool refresh already running")
	}
	s.refreshing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.refreshing = false
		s.mu.Unlock()
	}()

	start := time.Now()
	images, err := s.images.RandomImages(ctx, s.size)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Image pool refresh failed, keeping existing pool")
		return 0, err
	}
	if len(images) == 0 {
		return 0, fmt.Errorf("image service returned no images")
	}

	if err := s.storage.Replace(ctx, images); err != nil {
		s.logger.Error().Err(err).Msg("Failed to store image pool")
		return 0, err
	}

	s.mu.Lock()
	s.lastRefresh = time.Now()
	s.mu.Unlock()

	s.logger.Info().
		Int("images", len(images)).
		Dur("elapsed", time.Since(start)).
		Msg("Image pool refreshed")
	return len(images), nil
}

// Sample returns up to n distinct images in random order
func (s *Service) Sample(ctx context.Context, n int) ([]models.Image, error) {
	all, err := s.storage.All(ctx)
	if err != nil {
		return nil, err
	}
	if n <= 0 || n > len(all) {
		n = len(all)
	}

	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	return all[:n], nil
}

// Count returns the number of pooled images
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.storage.Count(ctx)
}

// LastRefresh returns when the pool was last refreshed by this process
func (s *Service) LastRefresh() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefresh
}

// Start schedules periodic refreshes and fills an empty pool in the background
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("image pool already running")
	}
	if err := common.ValidateSchedule(s.schedule); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.Refresh(ctx); err != nil {
			s.logger.Debug().Err(err).Msg("Scheduled image pool refresh skipped")
		}
	}); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.cron.Start()
	s.running = true

	if n, err := s.storage.Count(ctx); err != nil || n == 0 {
		common.SafeGo(s.logger, "imagePoolWarmup", func() {
			_, _ = s.Refresh(ctx)
		})
	}

	s.logger.Info().Str("schedule", s.schedule).Int("size", s.size).Msg("Image pool started")
	return nil
}

// Stop halts scheduled refreshes
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info().Msg("Image pool stopped")
}
