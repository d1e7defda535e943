// Package openrouter is the client for the remote inference service: credential
// checks and the model catalog.
package openrouter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"modelkombat/config/models"
	"modelkombat/internal/apperrors"
	"modelkombat/internal/utils"
)

const (
	DefaultBaseURL    = "https://openrouter.ai/api/v1"
	DefaultTimeout    = 15 * time.Second
	DefaultCatalogTTL = 5 * time.Minute

	// maxBodySize caps how much of a response is read
	maxBodySize = 16 << 20
)

// Client talks to the OpenRouter API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	catalogTTL time.Duration
	now        func() time.Time
	logger     *zap.Logger

	group singleflight.Group

	mu         sync.Mutex
	credential string
	catalog    []models.CatalogEntry
	fetchedAt  time.Time
	// generation changes on Initialize and Reset so an in-flight fetch
	// started under an old credential is not cached
	generation uint64
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

// WithTimeout bounds each request
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithCatalogTTL sets how long a fetched catalog is served without force.
// Zero disables the cache.
func WithCatalogTTL(d time.Duration) Option {
	return func(c *Client) { c.catalogTTL = d }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithClock overrides time.Now for cache expiry
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client for baseURL, DefaultBaseURL if empty
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
		catalogTTL: DefaultCatalogTTL,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Initialize sets the credential and drops the cached catalog
func (c *Client) Initialize(credential string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credential = credential
	c.catalog = nil
	c.fetchedAt = time.Time{}
	c.generation++
}

// Reset clears the credential and the cache
func (c *Client) Reset() {
	c.Initialize("")
}

// Verify initializes the client with credential and tests it.
// Every failure collapses to false.
func (c *Client) Verify(ctx context.Context, credential string) bool {
	c.Initialize(credential)
	return c.TestConnection(ctx)
}

// TestConnection reports whether the service accepts the configured credential
func (c *Client) TestConnection(ctx context.Context) bool {
	credential, _ := c.snapshot()
	if credential == "" {
		return false
	}

	body, err := c.get(ctx, "/auth/key", credential)
	if err != nil {
		c.logger.Debug("connection test failed", zap.Error(err), zap.String("credential", utils.MaskCredential(credential)))
		return false
	}
	return gjson.GetBytes(body, "data").IsObject()
}

// FetchModelCatalog returns the offered models in service order. Without
// force, a catalog younger than the TTL is served from cache. Concurrent
// fetches share one request.
func (c *Client) FetchModelCatalog(ctx context.Context, force bool) ([]models.CatalogEntry, error) {
	c.mu.Lock()
	credential, generation := c.credential, c.generation
	if !force && c.catalog != nil && c.catalogTTL > 0 && c.now().Sub(c.fetchedAt) < c.catalogTTL {
		cached := slices.Clone(c.catalog)
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	if credential == "" {
		return nil, fmt.Errorf("%w: client has no API key", apperrors.ErrCredentialInvalid)
	}

	v, err, shared := c.group.Do(fmt.Sprintf("catalog-%d", generation), func() (any, error) {
		body, err := c.get(ctx, "/models", credential)
		if err != nil {
			return nil, err
		}
		return parseCatalog(body)
	})
	if err != nil {
		return nil, err
	}
	entries := v.([]models.CatalogEntry)

	c.mu.Lock()
	if c.generation == generation {
		c.catalog = entries
		c.fetchedAt = c.now()
	}
	c.mu.Unlock()

	c.logger.Debug("fetched catalog", zap.Int("models", len(entries)), zap.Bool("shared", shared))
	return slices.Clone(entries), nil
}

func (c *Client) snapshot() (string, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credential, c.generation
}

func (c *Client) get(ctx context.Context, path, credential string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	op := "GET " + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, utils.JoinURL(c.baseURL, path), nil)
	if err != nil {
		return nil, networkError(op, err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, networkError(op, fmt.Errorf("timed out after %s", c.timeout))
		}
		return nil, networkError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, networkError(op, fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(op, resp.StatusCode, body)
	}
	return body, nil
}

// parseCatalog reads data[].id and data[].name, dropping entries without an id
func parseCatalog(body []byte) ([]models.CatalogEntry, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: catalog response is not valid JSON", apperrors.ErrNetworkFailure)
	}
	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return nil, fmt.Errorf("%w: catalog response has no data array", apperrors.ErrNetworkFailure)
	}

	entries := make([]models.CatalogEntry, 0, len(data.Array()))
	data.ForEach(func(_, item gjson.Result) bool {
		id := item.Get("id").String()
		if id == "" {
			return true
		}
		entries = append(entries, models.CatalogEntry{
			ID:          id,
			DisplayName: item.Get("name").String(),
		})
		return true
	})
	return entries, nil
}
