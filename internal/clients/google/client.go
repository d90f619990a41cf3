package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "https://maps.googleapis.com"
	DefaultLanguage = "ru"
	DefaultRegion   = "kz"
)

var tracer = otel.Tracer("github.com/dpup/steppe.guide/server/internal/clients/google")

// HTTPDoer is the subset of *http.Client the client needs. Tests swap in a
// mock.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the Google Maps web service settings.
type Config struct {
	APIKey           string
	BaseURL          string
	Language         string
	Region           string
	QueriesPerSecond float64
	HTTPTimeout      time.Duration
}

// Client provides access to the Google Directions and Places web services.
type Client struct {
	apiKey     string
	httpClient HTTPDoer
	baseURL    string
	language   string
	region     string
	limiter    *rate.Limiter
}

// NewClient creates a new Google Maps client from cfg, filling in defaults
// for anything left empty.
func NewClient(cfg Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := NewClientWithHTTPDoer(cfg.APIKey, cfg.BaseURL, &http.Client{Timeout: timeout})
	if cfg.Language != "" {
		c.language = cfg.Language
	}
	if cfg.Region != "" {
		c.region = cfg.Region
	}
	if cfg.QueriesPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.QueriesPerSecond), 1)
	}
	return c
}

// NewClientWithHTTPDoer creates a client that sends requests through doer.
// Requests are not rate limited.
func NewClientWithHTTPDoer(apiKey, baseURL string, doer HTTPDoer) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: doer,
		baseURL:    baseURL,
		language:   DefaultLanguage,
		region:     DefaultRegion,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// getJSON performs a GET against path with params plus the API key and
// decodes the JSON body into out. Errors are classified as
// *DirectionsError.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return classifyTransportError(ctx, fmt.Errorf("rate limiter: %w", err))
		}
	}

	params.Set("key", c.apiKey)
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &DirectionsError{Cause: CauseTransport, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(ctx, fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &DirectionsError{
			Cause:      CauseHTTP,
			HTTPStatus: resp.StatusCode,
			Message:    fmt.Sprintf("API error %d: %s", resp.StatusCode, string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return classifyTransportError(ctx, ctxErr)
		}
		return &DirectionsError{Cause: CauseMalformed, HTTPStatus: resp.StatusCode, Message: "failed to decode response", Err: err}
	}
	return nil
}

func classifyTransportError(ctx context.Context, err error) error {
	var netErr net.Error
	timedOut := errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout())
	if timedOut {
		return &DirectionsError{Cause: CauseTimeout, Message: "request timed out", Err: err}
	}
	return &DirectionsError{Cause: CauseTransport, Message: "request failed", Err: err}
}
