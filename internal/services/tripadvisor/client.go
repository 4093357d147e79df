// Package tripadvisor provides the place lookup client backed by the
// TripAdvisor Content API.
package tripadvisor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/zola/internal/common"
	"github.com/ternarybob/zola/internal/models"
)

const (
	// DefaultBaseURL is the base URL for the TripAdvisor Content API.
	DefaultBaseURL = "https://api.content.tripadvisor.com/api/v1"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultResultsPerQuery is the number of search hits resolved to details.
	DefaultResultsPerQuery = 5

	serviceName = "tripadvisor"
)

// Client is a TripAdvisor Content API client.
type Client struct {
	baseURL         string
	apiKey          string
	language        string
	currency        string
	resultsPerQuery int
	fetchPhotos     bool
	httpClient      *http.Client
	logger          arbor.ILogger
	limiter         *rate.Limiter
	details         *lru.Cache[string, models.Place]
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMinInterval spaces requests at least interval apart. Zero disables limiting.
func WithMinInterval(interval time.Duration) ClientOption {
	return func(c *Client) {
		if interval <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// WithResultsPerQuery sets how many search hits are resolved per query.
func WithResultsPerQuery(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.resultsPerQuery = n
		}
	}
}

// WithLocale sets the language and currency of details responses.
func WithLocale(language, currency string) ClientOption {
	return func(c *Client) {
		if language != "" {
			c.language = language
		}
		if currency != "" {
			c.currency = currency
		}
	}
}

// WithPhotos enables resolving one photo per place.
func WithPhotos(enabled bool) ClientOption {
	return func(c *Client) {
		c.fetchPhotos = enabled
	}
}

// WithDetailsCache keeps up to size location details in memory. Zero disables the cache.
func WithDetailsCache(size int) ClientOption {
	return func(c *Client) {
		if size <= 0 {
			c.details = nil
			return
		}
		if cache, err := lru.New[string, models.Place](size); err == nil {
			c.details = cache
		}
	}
}

// NewClient creates a new TripAdvisor API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:         DefaultBaseURL,
		apiKey:          apiKey,
		language:        "en",
		currency:        "USD",
		resultsPerQuery: DefaultResultsPerQuery,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewClientFromConfig builds a client from the [tripadvisor] section
func NewClientFromConfig(apiKey string, cfg common.TripAdvisorConfig, logger arbor.ILogger) *Client {
	opts := []ClientOption{
		WithLogger(logger),
		WithLocale(cfg.Language, cfg.Currency),
		WithResultsPerQuery(cfg.ResultsPerQuery),
		WithPhotos(cfg.FetchPhotos),
		WithDetailsCache(cfg.DetailsCacheSize),
		WithMinInterval(common.ParseDuration(cfg.RateLimit, 200*time.Millisecond)),
		WithHTTPClient(&http.Client{Timeout: common.ParseDuration(cfg.Timeout, DefaultTimeout)}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	return NewClient(apiKey, opts...)
}

// get performs a GET request to the API and decodes the JSON body into result.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if c.apiKey == "" {
		return &models.APIError{Service: serviceName, StatusCode: http.StatusUnauthorized, Message: "api key not configured", Endpoint: path}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if c.logger != nil {
		c.logger.Debug().Str("path", path).Msg("TripAdvisor API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.TransportError(serviceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &models.APIError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return models.MalformedError(serviceName, err)
	}
	return nil
}

// errorMessage extracts {"error": {"message": ...}} from an error body
func errorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error.Message != "" {
			return parsed.Error.Message
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return strings.TrimSpace(string(body))
}

// GetLocations resolves each query to places. A trailing "hotels",
// "restaurants" or "attractions" word selects the search category. Places
// returned by several queries appear once. Details that fail to load are
// skipped; a failed search fails the whole call.
func (c *Client) GetLocations(ctx context.Context, queries []string) (*models.LocationsResult, error) {
	result := &models.LocationsResult{Locations: []models.Place{}}
	seen := make(map[string]bool)

	for _, query := range queries {
		if strings.TrimSpace(query) == "" {
			continue
		}

		hits, category, err := c.search(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to search locations for %q: %w", query, err)
		}

		for _, hit := range hits {
			if hit.LocationID == "" || seen[hit.LocationID] {
				continue
			}
			seen[hit.LocationID] = true

			place, err := c.Details(ctx, hit.LocationID, category)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				if c.logger != nil {
					c.logger.Warn().Err(err).Str("location_id", hit.LocationID).Msg("Skipping location without details")
				}
				continue
			}
			result.Locations = append(result.Locations, place)
		}
	}

	result.TotalCount = len(result.Locations)
	if c.logger != nil {
		c.logger.Debug().Int("queries", len(queries)).Int("locations", result.TotalCount).Msg("Location lookup completed")
	}
	return result, nil
}

func (c *Client) search(ctx context.Context, query string) ([]searchHit, models.PlaceCategory, error) {
	apiCategory, category := categoryForQuery(query)

	params := url.Values{}
	params.Set("searchQuery", searchTerm(query))
	params.Set("language", c.language)
	if apiCategory != "" {
		params.Set("category", apiCategory)
	}

	var resp searchResponse
	if err := c.get(ctx, "/location/search", params, &resp); err != nil {
		return nil, category, err
	}

	hits := resp.Data
	if len(hits) > c.resultsPerQuery {
		hits = hits[:c.resultsPerQuery]
	}
	return hits, category, nil
}

// Details returns a single place, served from the details cache when possible
func (c *Client) Details(ctx context.Context, locationID string, fallback models.PlaceCategory) (models.Place, error) {
	if c.details != nil {
		if place, ok := c.details.Get(locationID); ok {
			return place.Clone(), nil
		}
	}

	params := url.Values{}
	params.Set("language", c.language)
	params.Set("currency", c.currency)

	var details Details
	path := "/location/" + url.PathEscape(locationID) + "/details"
	if err := c.get(ctx, path, params, &details); err != nil {
		return models.Place{}, err
	}
	if details.LocationID == "" {
		details.LocationID = locationID
	}

	place := details.ToPlace(fallback)
	if c.fetchPhotos {
		place.PhotoURL = c.photoURL(ctx, locationID)
	}

	if c.details != nil {
		c.details.Add(locationID, place.Clone())
	}
	return place, nil
}

// photoURL returns the first photo of a location or "" when none can be loaded
func (c *Client) photoURL(ctx context.Context, locationID string) string {
	params := url.Values{}
	params.Set("language", c.language)
	params.Set("limit", strconv.Itoa(1))

	var resp photosResponse
	if err := c.get(ctx, "/location/"+url.PathEscape(locationID)+"/photos", params, &resp); err != nil {
		if c.logger != nil {
			c.logger.Debug().Err(err).Str("location_id", locationID).Msg("Location photo unavailable")
		}
		return ""
	}
	return resp.firstURL()
}
