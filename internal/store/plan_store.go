package store

import (
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/zola/internal/models"
)

// PlanChange is delivered to subscribers after every mutation
type PlanChange struct {
	Version uint64       `json:"version"`
	Op      string       `json:"op"`
	Plan    *models.Plan `json:"plan"` // nil when no plan is current
}

// PlanListener receives plan changes. Listeners may read the store but must
// not mutate it.
type PlanListener func(change PlanChange)

// PlanStore holds the single current plan of a workspace.
//
// Every mutation is one turn: the turn lock is held while the state changes
// and while listeners are notified, so listeners observe changes in mutation
// order and no reader sees a half-applied change.
type PlanStore struct {
	turn sync.Mutex
	mu   sync.RWMutex

	current *models.Plan
	version uint64

	subMu     sync.RWMutex
	listeners map[int]PlanListener
	nextSubID int

	logger arbor.ILogger
}

// NewPlanStore creates an empty plan store
func NewPlanStore(logger arbor.ILogger) *PlanStore {
	return &PlanStore{
		listeners: make(map[int]PlanListener),
		logger:    logger,
	}
}

// mutate runs fn against the current plan pointer as a single turn. fn
// returns false when nothing changed, in which case no notification is sent.
func (s *PlanStore) mutate(op string, fn func(current **models.Plan) bool) bool {
	s.turn.Lock()
	defer s.turn.Unlock()

	s.mu.Lock()
	changed := fn(&s.current)
	if !changed {
		s.mu.Unlock()
		return false
	}
	s.version++
	change := PlanChange{Version: s.version, Op: op, Plan: s.snapshotLocked()}
	s.mu.Unlock()

	s.logger.Debug().
		Str("op", op).
		Int64("version", int64(change.Version)).
		Msg("Plan store mutated")

	s.notify(change)
	return true
}

func (s *PlanStore) snapshotLocked() *models.Plan {
	if s.current == nil {
		return nil
	}
	clone := s.current.Clone()
	return &clone
}

func (s *PlanStore) notify(change PlanChange) {
	s.subMu.RLock()
	listeners := make([]PlanListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.subMu.RUnlock()

	for _, l := range listeners {
		l(change)
	}
}

// Subscribe registers a listener and returns a function that removes it
func (s *PlanStore) Subscribe(listener PlanListener) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.listeners[id] = listener
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.listeners, id)
			s.subMu.Unlock()
		})
	}
}

// Current returns a snapshot of the current plan, or nil
func (s *PlanStore) Current() *models.Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Version returns the number of mutations applied so far
func (s *PlanStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// IsPinned reports whether imageID is in the current plan's images
func (s *PlanStore) IsPinned(imageID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil && s.current.HasImage(imageID)
}

// PinnedIDs returns the set of image ids in the current plan
func (s *PlanStore) PinnedIDs() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]bool)
	if s.current != nil {
		for _, img := range s.current.Images {
			ids[img.ID] = true
		}
	}
	return ids
}

// SetCurrentPlan replaces the current plan wholesale
func (s *PlanStore) SetCurrentPlan(plan models.Plan) {
	next := plan.Clone()
	next.Normalize()
	s.mutate("set_current_plan", func(current **models.Plan) bool {
		*current = &next
		return true
	})
}

// ReplaceKeepingImages replaces the current plan with plan, carrying over the
// images pinned at that moment. Reading the pins and writing the new plan is
// one turn. It returns the stored plan.
func (s *PlanStore) ReplaceKeepingImages(plan models.Plan) models.Plan {
	next := plan.Clone()
	var stored models.Plan
	s.mutate("replace_keeping_images", func(current **models.Plan) bool {
		if *current != nil {
			next.Images = (*current).Clone().Images
		}
		next.Normalize()
		*current = &next
		stored = next.Clone()
		return true
	})
	return stored
}

// UpdateCurrentPlan shallow-merges update into the current plan. It returns
// false and creates nothing when no plan is current.
func (s *PlanStore) UpdateCurrentPlan(update models.PlanUpdate) bool {
	return s.mutate("update_current_plan", func(current **models.Plan) bool {
		if *current == nil {
			return false
		}
		merged := (*current).Clone()
		update.Apply(&merged)
		merged.Normalize()
		*current = &merged
		return true
	})
}

// AddImagesToCurrentPlan appends the images whose ids are not yet present,
// creating a default plan first when none exists
func (s *PlanStore) AddImagesToCurrentPlan(images []models.Image) {
	s.mutate("add_images", func(current **models.Plan) bool {
		created := false
		if *current == nil {
			plan := models.NewDefaultPlan()
			*current = &plan
			created = true
		}
		added := appendAbsent(*current, images)
		return created || added > 0
	})
}

func appendAbsent(plan *models.Plan, images []models.Image) int {
	present := make(map[string]bool, len(plan.Images))
	for _, img := range plan.Images {
		present[img.ID] = true
	}
	added := 0
	for _, img := range images {
		if present[img.ID] {
			continue
		}
		present[img.ID] = true
		plan.Images = append(plan.Images, img.Clone())
		added++
	}
	return added
}

// RemoveImageFromCurrentPlan removes the image with imageID. The plan stays
// current even when its image list becomes empty.
func (s *PlanStore) RemoveImageFromCurrentPlan(imageID string) {
	s.mutate("remove_image", func(current **models.Plan) bool {
		return removeImage(*current, imageID)
	})
}

func removeImage(plan *models.Plan, imageID string) bool {
	if plan == nil {
		return false
	}
	kept := plan.Images[:0:0]
	for _, img := range plan.Images {
		if img.ID != imageID {
			kept = append(kept, img)
		}
	}
	if len(kept) == len(plan.Images) {
		return false
	}
	plan.Images = kept
	return true
}

// TogglePin flips the membership of image in the current plan in one turn.
// Membership is read from the store at the moment of the toggle. It returns
// true when the image is pinned afterwards.
func (s *PlanStore) TogglePin(image models.Image) bool {
	pinned := false
	s.mutate("toggle_pin", func(current **models.Plan) bool {
		if *current != nil && (*current).HasImage(image.ID) {
			return removeImage(*current, image.ID)
		}
		if *current == nil {
			plan := models.NewDefaultPlan()
			*current = &plan
		}
		appendAbsent(*current, []models.Image{image})
		pinned = true
		return true
	})
	return pinned
}

// ClearCurrentPlan discards the current plan
func (s *PlanStore) ClearCurrentPlan() {
	s.mutate("clear_current_plan", func(current **models.Plan) bool {
		if *current == nil {
			return false
		}
		*current = nil
		return true
	})
}

// SetItinerary sets the itinerary markdown; no-op without a plan
func (s *PlanStore) SetItinerary(markdown string) bool {
	return s.mutate("set_itinerary", func(current **models.Plan) bool {
		if *current == nil {
			return false
		}
		text := markdown
		(*current).Itinerary = &text
		return true
	})
}

// SetLocations sets the recommended places; no-op without a plan
func (s *PlanStore) SetLocations(places []models.Place) bool {
	return s.mutate("set_locations", func(current **models.Plan) bool {
		if *current == nil {
			return false
		}
		(*current).Locations = clonePlaces(places)
		return true
	})
}

// SetItineraryResult writes the itinerary and its places in one turn.
// Locations are left untouched when places is nil.
func (s *PlanStore) SetItineraryResult(markdown string, places []models.Place) bool {
	return s.mutate("set_itinerary_result", func(current **models.Plan) bool {
		if *current == nil {
			return false
		}
		text := markdown
		(*current).Itinerary = &text
		if places != nil {
			(*current).Locations = clonePlaces(places)
		}
		return true
	})
}

func clonePlaces(places []models.Place) []models.Place {
	if places == nil {
		return nil
	}
	out := make([]models.Place, 0, len(places))
	for _, p := range places {
		out = append(out, p.Clone())
	}
	return out
}
