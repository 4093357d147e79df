package tripadvisor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/zola/internal/models"
)

type fakeTripAdvisor struct {
	detailsCalls atomic.Int32
	searches     []string
}

func (f *fakeTripAdvisor) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/location/search":
			f.searches = append(f.searches, r.URL.Query().Get("searchQuery")+"|"+r.URL.Query().Get("category"))
			switch r.URL.Query().Get("category") {
			case "attractions":
				_, _ = w.Write([]byte(`{"data":[{"location_id":"1","name":"Castle"},{"location_id":"2","name":"Tower"}]}`))
			case "hotels":
				_, _ = w.Write([]byte(`{"data":[{"location_id":"3","name":"Inn"},{"location_id":"1","name":"Castle"}]}`))
			default:
				_, _ = w.Write([]byte(`{"data":[]}`))
			}
		case strings.HasSuffix(r.URL.Path, "/details"):
			f.detailsCalls.Add(1)
			id := strings.Split(r.URL.Path, "/")[2]
			assert.Equal(t, "USD", r.URL.Query().Get("currency"))
			switch id {
			case "1":
				_, _ = w.Write([]byte(`{"location_id":"1","name":"Castle","description":"Hilltop castle",
					"address_obj":{"address_string":"1 Castle Rd, Lisbon"},"rating":"4.5",
					"category":{"name":"attraction"},"trip_types":[{"name":"family","localized_name":"Families"}],
					"web_url":"https://ta/1"}`))
			case "2":
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
			case "3":
				_, _ = w.Write([]byte(`{"location_id":"3","name":"Inn","rating":4,"price_level":"$$",
					"address_obj":{"street1":"Main St","city":"Lisbon"},"amenities":["Wifi"],"styles":["Budget"]}`))
			}
		case strings.HasSuffix(r.URL.Path, "/photos"):
			_, _ = w.Write([]byte(`{"data":[{"images":{"medium":{"url":"https://photos/m.jpg"}}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestClient(t *testing.T, fake *fakeTripAdvisor, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	base := []ClientOption{WithBaseURL(srv.URL), WithLogger(arbor.NewLogger()), WithMinInterval(0), WithPhotos(true)}
	return NewClient("test-key", append(base, opts...)...)
}

func TestGetLocations(t *testing.T) {
	fake := &fakeTripAdvisor{}
	client := newTestClient(t, fake)

	result, err := client.GetLocations(context.Background(), []string{"Lisbon attractions", "Lisbon hotels"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Lisbon|attractions", "Lisbon|hotels"}, fake.searches)
	require.Equal(t, 2, result.TotalCount, "failed details are skipped and duplicates appear once")
	require.Len(t, result.Locations, 2)

	castle := result.Locations[0]
	assert.Equal(t, "1", castle.ID)
	assert.Equal(t, models.PlaceCategoryAttraction, castle.Category)
	assert.Equal(t, 4.5, castle.Rating)
	assert.Equal(t, "1 Castle Rd, Lisbon", castle.Address)
	assert.Equal(t, []string{"Families"}, castle.TripTypes)
	assert.Equal(t, "https://photos/m.jpg", castle.PhotoURL)

	inn := result.Locations[1]
	assert.Equal(t, models.PlaceCategoryHotel, inn.Category, "category falls back to the query category")
	assert.Equal(t, "Main St, Lisbon", inn.Address)
	assert.Equal(t, 4.0, inn.Rating)
	assert.Equal(t, "$$", inn.PriceLevel)
	assert.Equal(t, []string{"Wifi"}, inn.Amenities)
}

func TestGetLocations_FreeTextQueryHasNoCategory(t *testing.T) {
	fake := &fakeTripAdvisor{}
	client := newTestClient(t, fake)

	result, err := client.GetLocations(context.Background(), []string{"Eiffel Tower", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"Eiffel Tower|"}, fake.searches)
	assert.Equal(t, 0, result.TotalCount)
	assert.NotNil(t, result.Locations)
}

func TestGetLocations_DetailsCache(t *testing.T) {
	fake := &fakeTripAdvisor{}
	client := newTestClient(t, fake, WithDetailsCache(16))

	_, err := client.GetLocations(context.Background(), []string{"Lisbon attractions"})
	require.NoError(t, err)
	first := fake.detailsCalls.Load()

	_, err = client.GetLocations(context.Background(), []string{"Lisbon attractions"})
	require.NoError(t, err)

	// location 2 fails and is not cached, location 1 is served from the cache
	assert.Equal(t, first+1, fake.detailsCalls.Load())
}

func TestGetLocations_SearchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"invalid key"}`))
	}))
	defer srv.Close()

	client := NewClient("bad", WithBaseURL(srv.URL), WithMinInterval(0))
	_, err := client.GetLocations(context.Background(), []string{"Lisbon hotels"})

	require.Error(t, err)
	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid key", apiErr.Message)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestCategoryForQuery(t *testing.T) {
	tests := []struct {
		query    string
		api      string
		category models.PlaceCategory
		term     string
	}{
		{"Lisbon restaurants", "restaurants", models.PlaceCategoryRestaurant, "Lisbon"},
		{"New York hotels", "hotels", models.PlaceCategoryHotel, "New York"},
		{"Rome attractions", "attractions", models.PlaceCategoryAttraction, "Rome"},
		{"hotels", "", models.PlaceCategoryOther, "hotels"},
		{"Louvre museum", "", models.PlaceCategoryOther, "Louvre museum"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			api, category := categoryForQuery(tt.query)
			assert.Equal(t, tt.api, api)
			assert.Equal(t, tt.category, category)
			assert.Equal(t, tt.term, searchTerm(tt.query))
		})
	}
}
