package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/zola/internal/common"
	"github.com/ternarybob/zola/internal/models"
	"github.com/ternarybob/zola/internal/services/planner"
	"github.com/ternarybob/zola/internal/services/sessions"
)

// mockImageService implements interfaces.ImageService for testing
type mockImageService struct {
	searchFunc func(ctx context.Context, query string) ([]models.Image, error)
	randomFunc func(ctx context.Context, count int) ([]models.Image, error)
	tagsFunc   func(ctx context.Context, id string) ([]string, error)
}

func (m *mockImageService) SearchImages(ctx context.Context, query string) ([]models.Image, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query)
	}
	return []models.Image{}, nil
}

func (m *mockImageService) RandomImages(ctx context.Context, count int) ([]models.Image, error) {
	if m.randomFunc != nil {
		return m.randomFunc(ctx, count)
	}
	return []models.Image{}, nil
}

func (m *mockImageService) ImageTags(ctx context.Context, id string) ([]string, error) {
	if m.tagsFunc != nil {
		return m.tagsFunc(ctx, id)
	}
	return nil, nil
}

// mockItineraryService implements interfaces.ItineraryService for testing
type mockItineraryService struct {
	createFunc func(ctx context.Context, plan models.Plan) (*models.ItineraryResult, error)
}

func (m *mockItineraryService) CreateItinerary(ctx context.Context, plan models.Plan) (*models.ItineraryResult, error) {
	return m.createFunc(ctx, plan)
}

// mockLocationService implements interfaces.LocationService for testing
type mockLocationService struct {
	getFunc func(ctx context.Context, queries []string) (*models.LocationsResult, error)
}

func (m *mockLocationService) GetLocations(ctx context.Context, queries []string) (*models.LocationsResult, error) {
	return m.getFunc(ctx, queries)
}

type stubRenderer struct{}

func (stubRenderer) ItineraryHTML(markdown string) (string, error) {
	return "<p>" + markdown + "</p>", nil
}

func (stubRenderer) ItineraryPDF(ctx context.Context, plan models.Plan) ([]byte, error) {
	if plan.Itinerary == nil {
		return nil, models.ErrNoItinerary
	}
	return []byte("%PDF-1.3 stub"), nil
}

type testEnv struct {
	images    *mockImageService
	itinerary *mockItineraryService
	locations *mockLocationService
	sessions  *sessions.Manager
	mux       *http.ServeMux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := arbor.NewLogger()

	env := &testEnv{
		images: &mockImageService{
			randomFunc: func(ctx context.Context, count int) ([]models.Image, error) {
				return []models.Image{testImage("d1"), testImage("d2")}, nil
			},
			searchFunc: func(ctx context.Context, query string) ([]models.Image, error) {
				return []models.Image{testImage("s1")}, nil
			},
		},
		itinerary: &mockItineraryService{
			createFunc: func(ctx context.Context, plan models.Plan) (*models.ItineraryResult, error) {
				return &models.ItineraryResult{Itinerary: "## Day 1 in " + plan.Location}, nil
			},
		},
		locations: &mockLocationService{
			getFunc: func(ctx context.Context, queries []string) (*models.LocationsResult, error) {
				return &models.LocationsResult{Locations: []models.Place{{ID: "1", Name: "Museum"}}, TotalCount: 1}, nil
			},
		},
	}

	env.sessions = sessions.NewManager(common.SessionsConfig{MaxSessions: 10}, false, func(id string) *planner.Workspace {
		return planner.NewWorkspace(id, planner.Dependencies{
			Images:              env.images,
			Itinerary:           env.itinerary,
			Logger:              logger,
			FenceStaleResponses: true,
		})
	}, logger)

	service := NewServiceHandler(env.images, env.locations, env.itinerary, env.sessions, logger)
	plan := NewPlanHandler(env.sessions, logger)
	gallery := NewGalleryHandler(env.sessions, logger)
	itinerary := NewItineraryHandler(env.sessions, stubRenderer{}, logger)
	api := NewAPIHandler(env.sessions, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/get-images", service.GetImagesHandler)
	mux.HandleFunc("/api/get-random-images", service.GetRandomImagesHandler)
	mux.HandleFunc("/api/create-itinerary", service.CreateItineraryHandler)
	mux.HandleFunc("/api/get-locations", service.GetLocationsHandler)
	mux.HandleFunc("/api/pin-image", service.PinImageHandler)
	mux.HandleFunc("/api/plan", plan.PlanHandler)
	mux.HandleFunc("/api/plan/images", plan.AddImagesHandler)
	mux.HandleFunc("/api/plan/images/", plan.RemoveImageHandler)
	mux.HandleFunc("/api/plan/pins/", plan.TogglePinHandler)
	mux.HandleFunc("/api/plan/generate", plan.GenerateHandler)
	mux.HandleFunc("/api/plan/generation", plan.GenerationStateHandler)
	mux.HandleFunc("/api/gallery", gallery.GalleryHandler)
	mux.HandleFunc("/api/gallery/search", gallery.ClearSearchHandler)
	mux.HandleFunc("/api/images", gallery.ImagesHandler)
	mux.HandleFunc("/api/images/selection", gallery.SelectionHandler)
	mux.HandleFunc("/api/itinerary", itinerary.ItineraryHandler)
	mux.HandleFunc("/api/itinerary/pdf", itinerary.PDFHandler)
	mux.HandleFunc("/api/health", api.HealthHandler)
	env.mux = mux
	return env
}

func testImage(id string) models.Image {
	return models.Image{ID: id, URL: "https://images.example/" + id, AltText: "alt " + id}
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// do executes a request in session (a new session when empty) and returns the
// recorder, the decoded envelope and the session id
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, session string) (*httptest.ResponseRecorder, envelope, string) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if session != "" {
		req.Header.Set(sessions.HeaderName, session)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env, rec.Header().Get(sessions.HeaderName)
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func errorMessage(t *testing.T, env envelope) string {
	t.Helper()
	var data map[string]string
	decodeData(t, env, &data)
	return data["error"]
}

func TestGetImages(t *testing.T) {
	e := newTestEnv(t)

	rec, env, session := e.do(t, http.MethodGet, "/api/get-images?query=beach", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", env.Status)

	var data struct {
		Images []models.Image `json:"images"`
	}
	decodeData(t, env, &data)
	assert.Equal(t, []string{"s1"}, models.ImageIDs(data.Images))

	// the search is recorded in the session gallery
	_, env, _ = e.do(t, http.MethodGet, "/api/gallery", nil, session)
	var view planner.GalleryView
	decodeData(t, env, &view)
	assert.Equal(t, "search", view.Source)
	assert.Equal(t, "beach", view.Search.Query)
}

func TestGetImages_Errors(t *testing.T) {
	e := newTestEnv(t)

	rec, env, _ := e.do(t, http.MethodGet, "/api/get-images", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "query is required", errorMessage(t, env))

	e.images.searchFunc = func(ctx context.Context, query string) ([]models.Image, error) {
		return nil, &models.APIError{Service: "unsplash", StatusCode: 401, Message: "bad key"}
	}
	rec, env, _ = e.do(t, http.MethodGet, "/api/get-images?query=x", nil, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, errorMessage(t, env), "bad key")

	rec, _, _ = e.do(t, http.MethodPost, "/api/get-images?query=x", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetRandomImages(t *testing.T) {
	e := newTestEnv(t)

	rec, env, session := e.do(t, http.MethodGet, "/api/get-random-images", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Images []models.Image `json:"images"`
	}
	decodeData(t, env, &data)
	assert.Len(t, data.Images, 2)

	_, env, _ = e.do(t, http.MethodGet, "/api/images", nil, session)
	var images struct {
		Images []models.Image `json:"images"`
	}
	decodeData(t, env, &images)
	assert.Len(t, images.Images, 2)
}

func TestCreateItinerary(t *testing.T) {
	e := newTestEnv(t)

	rec, env, _ := e.do(t, http.MethodPost, "/api/create-itinerary", map[string]interface{}{
		"location":  "Kyoto",
		"numPeople": 2,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.ItineraryResult
	decodeData(t, env, &result)
	assert.Equal(t, "## Day 1 in Kyoto", result.Itinerary)

	e.itinerary.createFunc = func(ctx context.Context, plan models.Plan) (*models.ItineraryResult, error) {
		return nil, models.TransportError("gemini", errors.New("dial tcp"))
	}
	rec, _, _ = e.do(t, http.MethodPost, "/api/create-itinerary", map[string]interface{}{"location": "Kyoto"}, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetLocations(t *testing.T) {
	e := newTestEnv(t)

	rec, env, _ := e.do(t, http.MethodPost, "/api/get-locations", map[string]interface{}{"queries": []string{"Kyoto museums"}}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.LocationsResult
	decodeData(t, env, &result)
	assert.Equal(t, 1, result.TotalCount)

	rec, _, _ = e.do(t, http.MethodPost, "/api/get-locations", map[string]interface{}{"queries": []string{}}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLocations_NotConfigured(t *testing.T) {
	handler := NewServiceHandler(&mockImageService{}, nil, &mockItineraryService{}, nil, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.GetLocationsHandler(rec, httptest.NewRequest(http.MethodPost, "/api/get-locations", bytes.NewReader([]byte(`{"queries":["x"]}`))))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPinImage(t *testing.T) {
	e := newTestEnv(t)
	e.images.tagsFunc = func(ctx context.Context, id string) ([]string, error) {
		return []string{"mountain"}, nil
	}

	rec, env, _ := e.do(t, http.MethodPost, "/api/pin-image", map[string]string{"imageId": "abc"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		Tags []string `json:"tags"`
	}
	decodeData(t, env, &data)
	assert.Equal(t, []string{"mountain"}, data.Tags)

	rec, _, _ = e.do(t, http.MethodPost, "/api/pin-image", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlanLifecycle(t *testing.T) {
	e := newTestEnv(t)

	rec, env, session := e.do(t, http.MethodGet, "/api/plan", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp planResponse
	decodeData(t, env, &resp)
	assert.Nil(t, resp.Plan)

	// merge without a plan is a no-op
	rec, _, _ = e.do(t, http.MethodPatch, "/api/plan", map[string]string{"location": "Oslo"}, session)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env, _ = e.do(t, http.MethodPost, "/api/plan/images", map[string]interface{}{
		"images": []models.Image{testImage("a"), testImage("a"), testImage("b")},
	}, session)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, env, &resp)
	require.NotNil(t, resp.Plan)
	assert.Equal(t, []string{"a", "b"}, models.ImageIDs(resp.Plan.Images))
	assert.Equal(t, 1, resp.Plan.NumPeople)
	assert.Equal(t, models.MoodRelaxing, resp.Plan.Mood)

	_, env, _ = e.do(t, http.MethodPatch, "/api/plan", map[string]interface{}{"location": "Oslo", "numPeople": 3}, session)
	decodeData(t, env, &resp)
	assert.Equal(t, "Oslo", resp.Plan.Location)
	assert.Equal(t, 3, resp.Plan.NumPeople)
	assert.Len(t, resp.Plan.Images, 2)

	_, env, _ = e.do(t, http.MethodDelete, "/api/plan/images/a", nil, session)
	decodeData(t, env, &resp)
	assert.Equal(t, []string{"b"}, models.ImageIDs(resp.Plan.Images))

	_, env, _ = e.do(t, http.MethodDelete, "/api/plan", nil, session)
	decodeData(t, env, &resp)
	assert.Nil(t, resp.Plan)
}

func TestPlanInvariantsHoldThroughPlanEndpoints(t *testing.T) {
	e := newTestEnv(t)

	rec, env, session := e.do(t, http.MethodPut, "/api/plan", map[string]interface{}{"mood": "grumpy", "numPeople": 2}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, env), "invalid trip parameters")

	rec, env, _ = e.do(t, http.MethodGet, "/api/plan", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp planResponse
	decodeData(t, env, &resp)
	assert.Nil(t, resp.Plan, "rejected plan must not be stored")

	rec, env, _ = e.do(t, http.MethodPut, "/api/plan", map[string]interface{}{"location": "Kyoto", "numPeople": "abc"}, session)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, env, &resp)
	require.NotNil(t, resp.Plan)
	assert.Equal(t, 1, resp.Plan.NumPeople)
	assert.Equal(t, models.MoodRelaxing, resp.Plan.Mood)

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
		wantPeople int
		wantMood   models.Mood
	}{
		{"numeric string", map[string]interface{}{"numPeople": "4"}, http.StatusOK, 4, models.MoodRelaxing},
		{"non-numeric string", map[string]interface{}{"numPeople": "abc"}, http.StatusOK, 1, models.MoodRelaxing},
		{"zero", map[string]interface{}{"numPeople": 0}, http.StatusOK, 1, models.MoodRelaxing},
		{"whole float", map[string]interface{}{"numPeople": json.RawMessage("3.0"), "mood": "foodie"}, http.StatusOK, 3, models.MoodFoodie},
		{"empty mood", map[string]interface{}{"mood": ""}, http.StatusOK, 3, models.MoodRelaxing},
		{"unknown mood", map[string]interface{}{"mood": "grumpy"}, http.StatusBadRequest, 3, models.MoodRelaxing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _, _ := e.do(t, http.MethodPatch, "/api/plan", tt.body, session)
			assert.Equal(t, tt.wantStatus, rec.Code)

			_, env, _ := e.do(t, http.MethodGet, "/api/plan", nil, session)
			var resp planResponse
			decodeData(t, env, &resp)
			require.NotNil(t, resp.Plan)
			assert.Equal(t, tt.wantPeople, resp.Plan.NumPeople)
			assert.Equal(t, tt.wantMood, resp.Plan.Mood)
		})
	}
}

func TestTogglePin(t *testing.T) {
	e := newTestEnv(t)

	_, _, session := e.do(t, http.MethodGet, "/api/gallery", nil, "")

	rec, env, _ := e.do(t, http.MethodPost, "/api/plan/pins/d2", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		Pin  planner.PinResult `json:"pin"`
		Plan *models.Plan      `json:"plan"`
	}
	decodeData(t, env, &data)
	assert.True(t, data.Pin.Pinned)
	assert.Equal(t, []string{"d2"}, models.ImageIDs(data.Plan.Images))

	_, env, _ = e.do(t, http.MethodGet, "/api/gallery", nil, session)
	var view planner.GalleryView
	decodeData(t, env, &view)
	require.Len(t, view.Cards, 2)
	assert.False(t, view.Cards[0].Pinned)
	assert.True(t, view.Cards[1].Pinned)

	rec, _, _ = e.do(t, http.MethodPost, "/api/plan/pins/unknown", nil, session)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// supplied image needs no gallery lookup
	rec, env, _ = e.do(t, http.MethodPost, "/api/plan/pins/x9", testImage("x9"), session)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, env, &data)
	assert.Equal(t, []string{"d2", "x9"}, models.ImageIDs(data.Plan.Images))
}

func TestGenerate(t *testing.T) {
	e := newTestEnv(t)
	params := map[string]interface{}{
		"dateFrom":  "2025-06-01",
		"dateTo":    "2025-06-03",
		"location":  "Lisbon",
		"numPeople": "2",
		"mood":      "foodie",
	}

	rec, env, session := e.do(t, http.MethodPost, "/api/plan/generate", params, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var outcome planner.GenerationOutcome
	decodeData(t, env, &outcome)
	assert.True(t, outcome.Applied)
	require.NotNil(t, outcome.Plan)
	assert.Equal(t, 2, outcome.Plan.NumPeople)

	rec, env, _ = e.do(t, http.MethodGet, "/api/itinerary", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	var it itineraryResponse
	decodeData(t, env, &it)
	assert.Equal(t, "## Day 1 in Lisbon", it.Itinerary)
	assert.Equal(t, "<p>## Day 1 in Lisbon</p>", it.HTML)
	assert.NotNil(t, it.Locations)

	rec, _, _ = e.do(t, http.MethodGet, "/api/itinerary/pdf", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "lisbon-itinerary.pdf")

	_, env, _ = e.do(t, http.MethodGet, "/api/plan/generation", nil, session)
	var state planner.GenerationState
	decodeData(t, env, &state)
	assert.Equal(t, planner.GenerationIdle, state.Status)
	assert.Equal(t, uint64(1), state.LastApplied)
}

func TestGenerate_Errors(t *testing.T) {
	e := newTestEnv(t)

	rec, _, _ := e.do(t, http.MethodPost, "/api/plan/generate", map[string]string{"mood": "sleepy"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	e.itinerary.createFunc = func(ctx context.Context, plan models.Plan) (*models.ItineraryResult, error) {
		return nil, &models.APIError{Service: "claude", StatusCode: 529, Message: "overloaded"}
	}
	rec, env, session := e.do(t, http.MethodPost, "/api/plan/generate", map[string]string{"location": "Rome"}, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, errorMessage(t, env), "overloaded")

	// parameters were written even though generation failed
	_, env, _ = e.do(t, http.MethodGet, "/api/plan", nil, session)
	var resp planResponse
	decodeData(t, env, &resp)
	require.NotNil(t, resp.Plan)
	assert.Equal(t, "Rome", resp.Plan.Location)
	assert.Nil(t, resp.Plan.Itinerary)

	rec, _, _ = e.do(t, http.MethodGet, "/api/itinerary", nil, session)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _, _ = e.do(t, http.MethodGet, "/api/itinerary/pdf", nil, session)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerate_Async(t *testing.T) {
	e := newTestEnv(t)

	rec, env, _ := e.do(t, http.MethodPost, "/api/plan/generate?async=true", map[string]string{"location": "Bergen"}, "")

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "started", env.Status)
}

func TestSelectionAndClearSearch(t *testing.T) {
	e := newTestEnv(t)
	_, _, session := e.do(t, http.MethodGet, "/api/get-images?query=snow", nil, "")

	_, env, _ := e.do(t, http.MethodPost, "/api/images/selection", selectionRequest{URL: "https://images.example/s1", Selected: true}, session)
	var sel struct {
		Selected []string `json:"selected"`
	}
	decodeData(t, env, &sel)
	assert.Equal(t, []string{"https://images.example/s1"}, sel.Selected)

	_, env, _ = e.do(t, http.MethodDelete, "/api/images/selection", nil, session)
	decodeData(t, env, &sel)
	assert.Empty(t, sel.Selected)

	_, env, _ = e.do(t, http.MethodDelete, "/api/gallery/search", nil, session)
	var view planner.GalleryView
	decodeData(t, env, &view)
	assert.Equal(t, "default", view.Source)
}

func TestSessionsAreIsolated(t *testing.T) {
	e := newTestEnv(t)

	_, _, a := e.do(t, http.MethodPost, "/api/plan/images", map[string]interface{}{"images": []models.Image{testImage("a")}}, "")
	_, env, b := e.do(t, http.MethodGet, "/api/plan", nil, "")

	assert.NotEqual(t, a, b)
	var resp planResponse
	decodeData(t, env, &resp)
	assert.Nil(t, resp.Plan)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)

	rec, _, _ := e.do(t, http.MethodGet, "/api/health", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))
	assert.Equal(t, "ok", data["status"])
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrInvalidParams, http.StatusBadRequest},
		{models.ErrNoItinerary, http.StatusNotFound},
		{models.TransportError("x", errors.New("reset")), http.StatusBadGateway},
		{&models.APIError{StatusCode: 500}, http.StatusBadGateway},
		{models.MalformedError("x", errors.New("eof")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusForError(tt.err), tt.err.Error())
	}
}

func TestPathParam(t *testing.T) {
	assert.Equal(t, "abc", PathParam("/api/plan/images/abc", "/api/plan/images/"))
	assert.Equal(t, "abc", PathParam("/api/plan/images/abc/", "/api/plan/images/"))
	assert.Equal(t, "", PathParam("/api/plan", "/api/plan/images/"))
}
