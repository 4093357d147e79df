// Package unsplash provides the image search client backed by the Unsplash API.
package unsplash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/zola/internal/common"
	"github.com/ternarybob/zola/internal/models"
)

const (
	// DefaultBaseURL is the base URL for the Unsplash API.
	DefaultBaseURL = "https://api.unsplash.com"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 15 * time.Second

	// MaxRandomCount is the largest count /photos/random accepts.
	MaxRandomCount = 30

	serviceName = "unsplash"
)

// Client is an Unsplash API client.
type Client struct {
	baseURL    string
	accessKey  string
	perPage    int
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
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

// WithPerPage sets the number of search results requested.
func WithPerPage(perPage int) ClientOption {
	return func(c *Client) {
		if perPage > 0 {
			c.perPage = perPage
		}
	}
}

// NewClient creates a new Unsplash API client.
func NewClient(accessKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		accessKey: accessKey,
		perPage:   30,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewClientFromConfig builds a client from the [unsplash] section
func NewClientFromConfig(accessKey string, cfg common.UnsplashConfig, logger arbor.ILogger) *Client {
	opts := []ClientOption{
		WithLogger(logger),
		WithPerPage(cfg.PerPage),
		WithMinInterval(common.ParseDuration(cfg.RateLimit, 100*time.Millisecond)),
		WithHTTPClient(&http.Client{Timeout: common.ParseDuration(cfg.Timeout, DefaultTimeout)}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	return NewClient(accessKey, opts...)
}

// get performs a GET request to the API and decodes the JSON body into result.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if c.accessKey == "" {
		return &models.APIError{Service: serviceName, StatusCode: http.StatusUnauthorized, Message: "access key not configured", Endpoint: path}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL = reqURL + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)
	req.Header.Set("Accept-Version", "v1")
	req.Header.Set("Accept", "application/json")

	if c.logger != nil {
		c.logger.Debug().Str("path", path).Str("query", params.Get("query")).Msg("Unsplash API request")
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

// errorMessage extracts {"errors": [...]} from an Unsplash error body
func errorMessage(body []byte) string {
	var parsed struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Errors) > 0 {
		return strings.Join(parsed.Errors, "; ")
	}
	return strings.TrimSpace(string(body))
}

// SearchImages returns photos matching query. An empty query yields no images
// without calling the API.
func (c *Client) SearchImages(ctx context.Context, query string) ([]models.Image, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Image{}, nil
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(c.perPage))

	var resp SearchResponse
	if err := c.get(ctx, "/search/photos", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to search images for %q: %w", query, err)
	}

	images := toImages(resp.Results)
	if c.logger != nil {
		c.logger.Debug().Str("query", query).Int("results", len(images)).Int("total", resp.Total).Msg("Unsplash search completed")
	}
	return images, nil
}

// RandomImages returns up to count random photos. Counts above the API maximum
// are fetched in several requests.
func (c *Client) RandomImages(ctx context.Context, count int) ([]models.Image, error) {
	if count <= 0 {
		count = MaxRandomCount
	}

	images := make([]models.Image, 0, count)
	for remaining := count; remaining > 0; {
		batch := min(remaining, MaxRandomCount)

		params := url.Values{}
		params.Set("count", strconv.Itoa(batch))

		var photos []Photo
		if err := c.get(ctx, "/photos/random", params, &photos); err != nil {
			if len(images) > 0 && !errors.Is(err, context.Canceled) {
				// keep what we already have
				if c.logger != nil {
					c.logger.Warn().Err(err).Int("fetched", len(images)).Msg("Random image batch failed, returning partial set")
				}
				break
			}
			return nil, fmt.Errorf("failed to fetch random images: %w", err)
		}
		if len(photos) == 0 {
			break
		}

		images = append(images, toImages(photos)...)
		remaining -= batch
	}

	return models.DedupeImages(images), nil
}

// ImageTags returns the tag titles of a single photo
func (c *Client) ImageTags(ctx context.Context, imageID string) ([]string, error) {
	imageID = strings.TrimSpace(imageID)
	if imageID == "" {
		return nil, fmt.Errorf("image id is required")
	}

	var photo Photo
	if err := c.get(ctx, "/photos/"+url.PathEscape(imageID), nil, &photo); err != nil {
		return nil, fmt.Errorf("failed to fetch tags for image %s: %w", imageID, err)
	}
	return photo.TagTitles(), nil
}
