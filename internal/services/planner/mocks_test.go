package planner

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/zola/internal/models"
)

type mockImages struct {
	searchFunc func(ctx context.Context, query string) ([]models.Image, error)
	randomFunc func(ctx context.Context, count int) ([]models.Image, error)
	tagsFunc   func(ctx context.Context, id string) ([]string, error)
}

func (m *mockImages) SearchImages(ctx context.Context, query string) ([]models.Image, error) {
	return m.searchFunc(ctx, query)
}

func (m *mockImages) RandomImages(ctx context.Context, count int) ([]models.Image, error) {
	return m.randomFunc(ctx, count)
}

func (m *mockImages) ImageTags(ctx context.Context, id string) ([]string, error) {
	if m.tagsFunc == nil {
		return nil, nil
	}
	return m.tagsFunc(ctx, id)
}

type mockPool struct {
	images []models.Image
}

func (m *mockPool) Sample(ctx context.Context, n int) ([]models.Image, error) {
	if n > len(m.images) {
		n = len(m.images)
	}
	return m.images[:n], nil
}

func (m *mockPool) Count(ctx context.Context) (int, error) {
	return len(m.images), nil
}

type mockItinerary struct {
	mu         sync.Mutex
	calls      []models.Plan
	createFunc func(ctx context.Context, plan models.Plan) (*models.ItineraryResult, error)
}

func (m *mockItinerary) CreateItinerary(ctx context.Context, plan models.Plan) (*models.ItineraryResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, plan)
	m.mu.Unlock()
	return m.createFunc(ctx, plan)
}

func (m *mockItinerary) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// gate holds an itinerary request until released; a gate with err fails
// the request on release
type gate struct {
	started chan struct{}
	release chan struct{}
	err     error
}

func newGate() *gate {
	return &gate{started: make(chan struct{}), release: make(chan struct{})}
}

// gatedItinerary answers each request with "itinerary for <location>" once
// the gate registered for that location is released
func gatedItinerary(gates map[string]*gate) *mockItinerary {
	return &mockItinerary{
		createFunc: func(ctx context.Context, plan models.Plan) (*models.ItineraryResult, error) {
			g := gates[plan.Location]
			close(g.started)
			<-g.release
			if g.err != nil {
				return nil, g.err
			}
			return &models.ItineraryResult{Itinerary: "itinerary for " + plan.Location}, nil
		},
	}
}

func image(id string) models.Image {
	return models.Image{ID: id, URL: "https://images.example/" + id, AltText: "alt " + id}
}

func newTestWorkspace(images *mockImages, itinerary *mockItinerary, fence bool) *Workspace {
	if images == nil {
		images = &mockImages{}
	}
	if itinerary == nil {
		itinerary = &mockItinerary{}
	}
	return NewWorkspace("ses_test", Dependencies{
		Images:              images,
		Itinerary:           itinerary,
		Logger:              arbor.NewLogger(),
		FenceStaleResponses: fence,
		DefaultImageCount:   3,
	})
}
