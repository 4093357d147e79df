package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/zola/internal/models"
)

func newTestPlanStore() *PlanStore {
	return NewPlanStore(arbor.NewLogger())
}

func img(id string) models.Image {
	return models.Image{ID: id, URL: "https://images.example/" + id, AltText: "alt " + id}
}

func TestPlanStore_PinIsIdempotent(t *testing.T) {
	s := newTestPlanStore()
	x := img("x")

	s.AddImagesToCurrentPlan([]models.Image{x})
	s.AddImagesToCurrentPlan([]models.Image{x})

	plan := s.Current()
	require.NotNil(t, plan)
	assert.Equal(t, []string{"x"}, models.ImageIDs(plan.Images))
}

func TestPlanStore_DuplicateIDsWithinOneAdd(t *testing.T) {
	s := newTestPlanStore()

	s.AddImagesToCurrentPlan([]models.Image{img("a"), img("b"), img("a")})

	assert.Equal(t, []string{"a", "b"}, models.ImageIDs(s.Current().Images))
}

func TestPlanStore_PinUnpinRoundTrip(t *testing.T) {
	s := newTestPlanStore()

	assert.True(t, s.TogglePin(img("x")))
	assert.False(t, s.TogglePin(img("x")))

	plan := s.Current()
	require.NotNil(t, plan, "plan remains after its last image is removed")
	assert.Empty(t, plan.Images)
	assert.False(t, s.IsPinned("x"))
}

func TestPlanStore_AddThenRemoveLeavesEmptyPlan(t *testing.T) {
	s := newTestPlanStore()

	s.AddImagesToCurrentPlan([]models.Image{img("a")})
	s.RemoveImageFromCurrentPlan("a")

	plan := s.Current()
	require.NotNil(t, plan, "removing the last image does not clear the plan")
	assert.NotNil(t, plan.Images)
	assert.Empty(t, plan.Images)
	assert.Equal(t, 1, plan.NumPeople)
	assert.Equal(t, models.MoodRelaxing, plan.Mood)
}

func TestPlanStore_ImplicitPlanCreation(t *testing.T) {
	s := newTestPlanStore()
	require.Nil(t, s.Current())

	s.AddImagesToCurrentPlan([]models.Image{img("x")})

	plan := s.Current()
	require.NotNil(t, plan)
	assert.Equal(t, "", plan.Location)
	assert.Equal(t, 1, plan.NumPeople)
	assert.Equal(t, "", plan.Budget)
	assert.Equal(t, models.MoodRelaxing, plan.Mood)
	assert.Nil(t, plan.DateFrom)
	assert.Nil(t, plan.DateTo)
	assert.Nil(t, plan.Itinerary)
	assert.Nil(t, plan.Locations)
	assert.Equal(t, []string{"x"}, models.ImageIDs(plan.Images))
}

func TestPlanStore_UpdateMergesShallowly(t *testing.T) {
	s := newTestPlanStore()
	s.SetCurrentPlan(models.Plan{
		Location:  "Lisbon",
		NumPeople: 2,
		Budget:    "$$",
		Mood:      models.MoodCultural,
		Images:    []models.Image{img("a")},
	})

	location := "Porto"
	assert.True(t, s.UpdateCurrentPlan(models.PlanUpdate{Location: &location}))

	plan := s.Current()
	assert.Equal(t, "Porto", plan.Location)
	assert.Equal(t, 2, plan.NumPeople)
	assert.Equal(t, "$$", plan.Budget)
	assert.Equal(t, models.MoodCultural, plan.Mood)
	assert.Equal(t, []string{"a"}, models.ImageIDs(plan.Images))
}

func TestPlanStore_NoOpsWithoutPlan(t *testing.T) {
	s := newTestPlanStore()
	location := "Rome"

	assert.False(t, s.UpdateCurrentPlan(models.PlanUpdate{Location: &location}))
	s.RemoveImageFromCurrentPlan("x")
	assert.False(t, s.SetItinerary("# Day 1"))
	assert.False(t, s.SetLocations([]models.Place{{ID: "1"}}))
	s.ClearCurrentPlan()

	assert.Nil(t, s.Current())
	assert.Equal(t, uint64(0), s.Version(), "no-ops do not count as mutations")
}

func TestPlanStore_SetCurrentPlanNormalizes(t *testing.T) {
	s := newTestPlanStore()
	s.SetCurrentPlan(models.Plan{NumPeople: -3, Images: []models.Image{img("a"), img("a")}})

	plan := s.Current()
	assert.Equal(t, 1, plan.NumPeople)
	assert.Len(t, plan.Images, 1)
}

func TestPlanStore_UpdateWithImagesKeepsIDsUnique(t *testing.T) {
	s := newTestPlanStore()
	s.SetCurrentPlan(models.NewDefaultPlan())

	images := []models.Image{img("a"), img("b"), img("a")}
	s.UpdateCurrentPlan(models.PlanUpdate{Images: &images})

	assert.Equal(t, []string{"a", "b"}, models.ImageIDs(s.Current().Images))
}

func TestPlanStore_RemoveAbsentImageIsNoOp(t *testing.T) {
	s := newTestPlanStore()
	s.AddImagesToCurrentPlan([]models.Image{img("a")})
	before := s.Version()

	s.RemoveImageFromCurrentPlan("zzz")

	assert.Equal(t, before, s.Version())
	assert.Equal(t, []string{"a"}, models.ImageIDs(s.Current().Images))
}

func TestPlanStore_SnapshotsAreIsolated(t *testing.T) {
	s := newTestPlanStore()
	s.AddImagesToCurrentPlan([]models.Image{img("a")})

	snapshot := s.Current()
	snapshot.Images[0].ID = "mutated"
	snapshot.Location = "nowhere"

	assert.True(t, s.IsPinned("a"))
	assert.Equal(t, "", s.Current().Location)
}

func TestPlanStore_SetItineraryResultIsOneTurn(t *testing.T) {
	s := newTestPlanStore()
	s.SetCurrentPlan(models.NewDefaultPlan())

	var changes []PlanChange
	cancel := s.Subscribe(func(change PlanChange) { changes = append(changes, change) })
	defer cancel()

	s.SetItineraryResult("# Day 1", []models.Place{{ID: "42", Name: "Museum"}})

	require.Len(t, changes, 1)
	plan := changes[0].Plan
	require.NotNil(t, plan.Itinerary)
	assert.Equal(t, "# Day 1", *plan.Itinerary)
	assert.Len(t, plan.Locations, 1)
}

func TestPlanStore_SubscribersSeeEveryMutationInOrder(t *testing.T) {
	s := newTestPlanStore()

	var ops []string
	var versions []uint64
	cancel := s.Subscribe(func(change PlanChange) {
		ops = append(ops, change.Op)
		versions = append(versions, change.Version)
		// reading from inside a notification is allowed
		_ = s.Current()
	})

	s.AddImagesToCurrentPlan([]models.Image{img("a")})
	s.SetItinerary("text")
	s.ClearCurrentPlan()
	cancel()
	s.AddImagesToCurrentPlan([]models.Image{img("b")})

	assert.Equal(t, []string{"add_images", "set_itinerary", "clear_current_plan"}, ops)
	assert.Equal(t, []uint64{1, 2, 3}, versions)
}

func TestPlanStore_ClearNotifiesNilPlan(t *testing.T) {
	s := newTestPlanStore()
	s.AddImagesToCurrentPlan([]models.Image{img("a")})

	var last PlanChange
	s.Subscribe(func(change PlanChange) { last = change })
	s.ClearCurrentPlan()

	assert.Equal(t, "clear_current_plan", last.Op)
	assert.Nil(t, last.Plan)
}

func TestPlanStore_ConcurrentTogglesKeepIDsUnique(t *testing.T) {
	s := newTestPlanStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.AddImagesToCurrentPlan([]models.Image{img(fmt.Sprintf("img-%d", i%10))})
		}(i)
	}
	wg.Wait()

	plan := s.Current()
	require.NotNil(t, plan)
	assert.Len(t, plan.Images, 10)
	assert.Len(t, s.PinnedIDs(), 10)
}

func TestPlanStore_ConcurrentTogglePairsCancelOut(t *testing.T) {
	s := newTestPlanStore()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.TogglePin(img("x"))
		}()
	}
	wg.Wait()

	assert.False(t, s.IsPinned("x"), "an even number of toggles leaves the image unpinned")
	assert.Equal(t, uint64(100), s.Version())
}

func TestPlanStore_ReplaceKeepingImages(t *testing.T) {
	s := newTestPlanStore()

	stored := s.ReplaceKeepingImages(models.Plan{Location: "Lima", NumPeople: 2, Images: []models.Image{img("seed")}})
	assert.Equal(t, "Lima", stored.Location)
	assert.Equal(t, []string{"seed"}, models.ImageIDs(stored.Images), "without a plan the given images are kept")

	s.AddImagesToCurrentPlan([]models.Image{img("a")})
	s.SetItinerary("old")

	stored = s.ReplaceKeepingImages(models.Plan{Location: "Cusco", Images: []models.Image{img("ignored")}})
	assert.Equal(t, "Cusco", stored.Location)
	assert.Equal(t, 1, stored.NumPeople)
	assert.Equal(t, []string{"seed", "a"}, models.ImageIDs(stored.Images))
	assert.Nil(t, stored.Itinerary)
	assert.Equal(t, stored, *s.Current())
}

func TestPlanStore_ConcurrentReplaceKeepsPins(t *testing.T) {
	s := newTestPlanStore()
	s.SetCurrentPlan(models.Plan{Location: "start"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.AddImagesToCurrentPlan([]models.Image{img(fmt.Sprintf("img-%d", i))})
		}(i)
		go func(i int) {
			defer wg.Done()
			s.ReplaceKeepingImages(models.Plan{Location: fmt.Sprintf("loc-%d", i)})
		}(i)
	}
	wg.Wait()

	plan := s.Current()
	require.NotNil(t, plan)
	assert.Len(t, plan.Images, 50, "no pin is lost to a concurrent replace")
	assert.Len(t, s.PinnedIDs(), 50)
}
