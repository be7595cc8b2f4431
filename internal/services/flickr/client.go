// Package flickr resolves photo metadata through the Flickr REST API.
package flickr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/flickrinsert/internal/models"
)

const (
	// DefaultBaseURL is the Flickr REST endpoint
	DefaultBaseURL = "https://api.flickr.com/services/rest/"

	// DefaultTimeout bounds a single getInfo call. There are no retries.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second)
	DefaultRateLimit = 1

	// breakerFailures is the number of consecutive transport failures that open the breaker
	breakerFailures = 3
)

// Client is a Flickr API client. It implements interfaces.MetadataResolver.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger sets a logger
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit. Zero or negative keeps the default.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// NewClient creates a new Flickr API client. Requests are not signed, so the
// secret is only kept for parity with the account credentials.
func NewClient(apiKey, apiSecret string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "flickr",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if c.logger != nil {
				c.logger.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Flickr circuit breaker state changed")
			}
		},
		// Flickr answering with an error still means the service is up
		IsSuccessful: func(err error) bool {
			var fetchErr *FetchError
			if errors.As(err, &fetchErr) {
				return fetchErr.answered()
			}
			return err == nil
		},
	})

	return c
}

// Resolve fetches the title and image URL base of a photo
func (c *Client) Resolve(ctx context.Context, photoID string) (*models.Metadata, error) {
	if c.logger != nil {
		c.logger.Info().Str("photo_id", photoID).Msg("Fetching info from Flickr")
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.getInfo(ctx, photoID)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &FetchError{PhotoID: photoID, Message: "flickr temporarily unavailable", Err: err}
		}
		return nil, err
	}

	return result.(*models.Metadata), nil
}

// getInfo calls flickr.photos.getInfo
func (c *Client) getInfo(ctx context.Context, photoID string) (*models.Metadata, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{PhotoID: photoID, Message: "rate limiter wait aborted", Err: err}
	}

	params := url.Values{}
	params.Set("method", "flickr.photos.getInfo")
	params.Set("api_key", c.apiKey)
	params.Set("photo_id", photoID)
	params.Set("format", "json")
	params.Set("nojsoncallback", "1")

	reqURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &FetchError{PhotoID: photoID, Message: "failed to create request", Err: err}
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL).
			Str("photo_id", photoID).
			Msg("Flickr API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{PhotoID: photoID, Message: "failed to execute request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &FetchError{
			PhotoID:    photoID,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var payload getInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &FetchError{PhotoID: photoID, Message: "failed to decode response", Err: err}
	}

	if payload.Stat != "ok" {
		message := payload.Message
		if message == "" {
			message = fmt.Sprintf("stat %q", payload.Stat)
		}
		return nil, &FetchError{PhotoID: photoID, Code: payload.Code, Message: message, StatusCode: resp.StatusCode}
	}

	if payload.Photo == nil {
		return nil, &FetchError{PhotoID: photoID, Message: "response has no photo"}
	}

	return &models.Metadata{
		Title:        payload.Photo.Title.Content,
		ImageURLBase: payload.Photo.imageURLBase(),
	}, nil
}
