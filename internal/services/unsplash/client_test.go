package unsplash

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/zola/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key",
		WithBaseURL(srv.URL),
		WithLogger(arbor.NewLogger()),
		WithMinInterval(0),
	)
}

func TestSearchImages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/photos", r.URL.Path)
		assert.Equal(t, "beach", r.URL.Query().Get("query"))
		assert.Equal(t, "Client-ID test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"total": 2,
			"results": [
				{"id": "p1", "description": null, "alt_description": "sunset over sand",
				 "urls": {"regular": "https://images/p1"}, "tags": [{"title": "beach"}, {"title": "Beach"}, {"title": ""}]},
				{"id": "p2", "description": "A cove", "alt_description": "",
				 "urls": {"regular": "", "small": "https://images/p2-small"}}
			]
		}`))
	})

	images, err := client.SearchImages(context.Background(), " beach ")
	require.NoError(t, err)
	require.Len(t, images, 2)

	assert.Equal(t, models.Image{
		ID:          "p1",
		URL:         "https://images/p1",
		Description: "sunset over sand",
		AltText:     "sunset over sand",
		Tags:        []string{"beach"},
	}, images[0])
	assert.Equal(t, "https://images/p2-small", images[1].URL)
	assert.Equal(t, "A cove", images[1].Description)
}

func TestSearchImages_EmptyQuerySkipsRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	images, err := client.SearchImages(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestSearchImages_ServiceError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":["OAuth error: The access token is invalid"]}`))
	})

	_, err := client.SearchImages(context.Background(), "beach")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrService)

	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "access token is invalid")
}

func TestSearchImages_MalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": "nope"`))
	})

	_, err := client.SearchImages(context.Background(), "beach")
	assert.ErrorIs(t, err, models.ErrMalformed)
}

func TestSearchImages_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), WithMinInterval(0))
	_, err := client.SearchImages(context.Background(), "beach")
	assert.ErrorIs(t, err, models.ErrTransport)
}

func TestMissingAccessKey(t *testing.T) {
	client := NewClient("", WithBaseURL("http://127.0.0.1:1"), WithMinInterval(0))

	_, err := client.RandomImages(context.Background(), 5)
	assert.ErrorIs(t, err, models.ErrService)
}

func TestRandomImages_Batches(t *testing.T) {
	var counts []string
	next := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/photos/random", r.URL.Path)
		counts = append(counts, r.URL.Query().Get("count"))
		w.Header().Set("Content-Type", "application/json")
		body := "["
		n := 30
		if r.URL.Query().Get("count") == "5" {
			n = 5
		}
		for i := 0; i < n; i++ {
			if i > 0 {
				body += ","
			}
			next++
			body += `{"id":"r` + strconv.Itoa(next) + `","urls":{"regular":"https://images/r"}}`
		}
		body += "]"
		_, _ = w.Write([]byte(body))
	})

	images, err := client.RandomImages(context.Background(), 35)
	require.NoError(t, err)
	assert.Equal(t, []string{"30", "5"}, counts)
	assert.Len(t, images, 35)
}

func TestImageTags(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/photos/abc", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"abc","tags":[{"title":"mountain"},{"title":"snow"}]}`))
	})

	tags, err := client.ImageTags(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"mountain", "snow"}, tags)
}
