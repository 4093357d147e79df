// Package planner implements the per-session trip planning workflow: the
// gallery, pin toggling and itinerary generation on top of the plan and image
// stores.
package planner

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/zola/internal/interfaces"
	"github.com/ternarybob/zola/internal/store"
)

// Dependencies are the collaborators shared by every workspace
type Dependencies struct {
	Images    interfaces.ImageService
	Pool      interfaces.ImagePool // optional
	Itinerary interfaces.ItineraryService
	Logger    arbor.ILogger

	// FenceStaleResponses discards itinerary responses superseded by a newer request
	FenceStaleResponses bool
	// DefaultImageCount is the size of the default gallery set
	DefaultImageCount int
	// TagTimeout bounds the auxiliary tag lookup made when pinning
	TagTimeout time.Duration
	// BaseContext is the parent of background generation requests
	BaseContext context.Context
}

// Workspace is the state of one browser session
type Workspace struct {
	ID     string
	Plans  *store.PlanStore
	Images *store.ImageStore

	deps       Dependencies
	generation *generationTracker
	logger     arbor.ILogger
	createdAt  time.Time
}

// NewWorkspace creates an empty workspace
func NewWorkspace(id string, deps Dependencies) *Workspace {
	logger := deps.Logger
	if logger == nil {
		logger = arbor.NewLogger()
	}
	if deps.DefaultImageCount <= 0 {
		deps.DefaultImageCount = 30
	}
	if deps.TagTimeout <= 0 {
		deps.TagTimeout = 5 * time.Second
	}
	if deps.BaseContext == nil {
		deps.BaseContext = context.Background()
	}

	return &Workspace{
		ID:         id,
		Plans:      store.NewPlanStore(logger),
		Images:     store.NewImageStore(),
		deps:       deps,
		generation: newGenerationTracker(),
		logger:     logger,
		createdAt:  time.Now(),
	}
}

// CreatedAt returns when the workspace was created
func (w *Workspace) CreatedAt() time.Time {
	return w.createdAt
}
