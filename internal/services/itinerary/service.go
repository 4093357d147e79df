// Package itinerary generates trip itineraries and recommended places.
package itinerary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/zola/internal/interfaces"
	"github.com/ternarybob/zola/internal/models"
)

// Service implements interfaces.ItineraryService
type Service struct {
	generator       interfaces.ContentGenerator
	locations       interfaces.LocationService
	recommendPlaces bool
	logger          arbor.ILogger
}

// NewService creates an itinerary service. locations may be nil, in which
// case no places are recommended.
func NewService(generator interfaces.ContentGenerator, locations interfaces.LocationService, recommendPlaces bool, logger arbor.ILogger) *Service {
	return &Service{
		generator:       generator,
		locations:       locations,
		recommendPlaces: recommendPlaces && locations != nil,
		logger:          logger,
	}
}

// CreateItinerary generates markdown for plan and looks up recommended places
// for its location. Place lookup failures are logged and leave Locations nil;
// generation failures fail the call.
func (s *Service) CreateItinerary(ctx context.Context, plan models.Plan) (*models.ItineraryResult, error) {
	start := time.Now()
	prompt := BuildPrompt(plan)

	s.logger.Info().
		Str("location", plan.Location).
		Int("num_people", plan.NumPeople).
		Str("mood", string(plan.Mood)).
		Int("images", len(plan.Images)).
		Msg("Generating itinerary")

	text, err := s.generator.GenerateText(ctx, systemInstruction, []interfaces.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate itinerary: %w", err)
	}

	text = cleanMarkdown(text)
	if text == "" {
		return nil, fmt.Errorf("failed to generate itinerary: %w", models.ErrMalformed)
	}

	result := &models.ItineraryResult{Itinerary: text}

	if queries := PlaceQueries(plan.Location); s.recommendPlaces && len(queries) > 0 {
		places, err := s.locations.GetLocations(ctx, queries)
		if err != nil {
			s.logger.Warn().Err(err).Str("location", plan.Location).Msg("Place recommendations unavailable")
		} else {
			result.Locations = places.Locations
		}
	}

	s.logger.Info().
		Dur("duration", time.Since(start)).
		Int("itinerary_chars", len(result.Itinerary)).
		Int("locations", len(result.Locations)).
		Msg("Itinerary generated")

	return result, nil
}

// cleanMarkdown strips a surrounding ```markdown fence that some models add
func cleanMarkdown(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if nl := strings.Index(text, "\n"); nl >= 0 {
		text = text[nl+1:]
	} else {
		return ""
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
