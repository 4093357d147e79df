package planner

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/zola/internal/common"
	"github.com/ternarybob/zola/internal/models"
)

// GenerationStatus is the trip panel's view of itinerary generation
type GenerationStatus string

const (
	GenerationIdle       GenerationStatus = "idle"
	GenerationRequesting GenerationStatus = "requesting"
)

// GenerationState reports progress of itinerary generation requests
type GenerationState struct {
	Status      GenerationStatus `json:"status"`
	InFlight    int              `json:"in_flight"`
	LastIssued  uint64           `json:"last_issued"`
	LastApplied uint64           `json:"last_applied"`
	LastError   string           `json:"last_error,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// GenerationOutcome is the result of one generation request
type GenerationOutcome struct {
	Seq     uint64                  `json:"seq"`
	Applied bool                    `json:"applied"`
	Stale   bool                    `json:"stale"`
	Plan    *models.Plan            `json:"plan,omitempty"`
	Result  *models.ItineraryResult `json:"-"`
}

type generationTracker struct {
	mu    sync.Mutex
	state GenerationState

	// requests still awaiting a response
	pending map[uint64]struct{}
	// newest request that got a response, applied or not
	newestSucceeded uint64
}

func newGenerationTracker() *generationTracker {
	return &generationTracker{
		state:   GenerationState{Status: GenerationIdle, UpdatedAt: time.Now()},
		pending: make(map[uint64]struct{}),
	}
}

// beginLocked issues the next sequence number; callers hold t.mu
func (t *generationTracker) beginLocked() uint64 {
	t.state.LastIssued++
	seq := t.state.LastIssued
	t.pending[seq] = struct{}{}
	t.state.InFlight = len(t.pending)
	t.state.Status = GenerationRequesting
	t.state.UpdatedAt = time.Now()
	return seq
}

// supersededLocked reports whether a newer request is still pending or has
// already succeeded. Newer requests that failed do not supersede seq.
func (t *generationTracker) supersededLocked(seq uint64) bool {
	if t.newestSucceeded > seq {
		return true
	}
	for other := range t.pending {
		if other > seq {
			return true
		}
	}
	return false
}

// endLocked records the end of a request; callers hold t.mu
func (t *generationTracker) endLocked(seq uint64, applied bool, err error) {
	delete(t.pending, seq)
	t.state.InFlight = len(t.pending)
	if t.state.InFlight == 0 {
		t.state.Status = GenerationIdle
	}
	if err == nil && seq > t.newestSucceeded {
		t.newestSucceeded = seq
	}
	if applied {
		t.state.LastApplied = seq
		t.state.LastError = ""
	}
	if err != nil {
		t.state.LastError = err.Error()
	}
	t.state.UpdatedAt = time.Now()
}

func (t *generationTracker) snapshot() GenerationState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// GenerationState returns the current generation progress
func (w *Workspace) GenerationState() GenerationState {
	return w.generation.snapshot()
}

// prepare validates params, writes them into the plan store and issues a
// sequence number. The new plan keeps the pins current at the moment of the
// write; sequence numbers follow the order of those writes.
func (w *Workspace) prepare(params models.TripParams) (uint64, models.Plan, error) {
	if err := params.Validate(); err != nil {
		return 0, models.Plan{}, err
	}

	w.generation.mu.Lock()
	defer w.generation.mu.Unlock()

	snapshot := w.Plans.ReplaceKeepingImages(params.ToPlan())
	seq := w.generation.beginLocked()
	return seq, snapshot, nil
}

// complete runs the itinerary request for seq and applies its response
func (w *Workspace) complete(ctx context.Context, seq uint64, snapshot models.Plan) (*GenerationOutcome, error) {
	outcome := &GenerationOutcome{Seq: seq}

	result, err := w.deps.Itinerary.CreateItinerary(ctx, snapshot)

	w.generation.mu.Lock()
	defer w.generation.mu.Unlock()

	if err != nil {
		w.generation.endLocked(seq, false, err)
		w.logger.Error().Err(err).Str("workspace", w.ID).Int64("seq", int64(seq)).Msg("Itinerary generation failed")
		return outcome, err
	}
	outcome.Result = result

	if w.deps.FenceStaleResponses && w.generation.supersededLocked(seq) {
		w.generation.endLocked(seq, false, nil)
		outcome.Stale = true
		w.logger.Info().
			Str("workspace", w.ID).
			Int64("seq", int64(seq)).
			Int64("latest", int64(w.generation.state.LastIssued)).
			Msg("Discarding superseded itinerary response")
		return outcome, nil
	}

	outcome.Applied = w.Plans.SetItineraryResult(result.Itinerary, result.Locations)
	w.generation.endLocked(seq, outcome.Applied, nil)
	outcome.Plan = w.Plans.Current()

	if !outcome.Applied {
		w.logger.Warn().Str("workspace", w.ID).Int64("seq", int64(seq)).Msg("Plan cleared before itinerary arrived")
	}
	return outcome, nil
}

// Generate writes params into the plan store, requests an itinerary for the
// resulting plan and applies the response. A request that fails leaves every
// plan field untouched.
func (w *Workspace) Generate(ctx context.Context, params models.TripParams) (*GenerationOutcome, error) {
	seq, snapshot, err := w.prepare(params)
	if err != nil {
		return nil, err
	}
	return w.complete(ctx, seq, snapshot)
}

// GenerateAsync starts Generate in the background and returns its sequence
// number once the parameters have been written
func (w *Workspace) GenerateAsync(params models.TripParams) (uint64, error) {
	seq, snapshot, err := w.prepare(params)
	if err != nil {
		return 0, err
	}

	common.SafeGo(w.logger, "generateItinerary", func() {
		_, _ = w.complete(w.deps.BaseContext, seq, snapshot)
	})
	return seq, nil
}
