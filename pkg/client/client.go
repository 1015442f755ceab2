// Package client provides an HTTP client for the data service with retries,
// conditional GET caching, and typed collection accessors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/data-service/pkg/cache"
	"github.com/Sternrassler/data-service/pkg/dataset"
	"github.com/Sternrassler/data-service/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for client operations.
var (
	clientRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "data_client_requests_total",
		Help: "Total data service requests by route and status",
	}, []string{"route", "status"})

	clientRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "data_client_request_duration_seconds",
		Help:    "Data service request duration in seconds by route",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"route"})

	clientErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "data_client_errors_total",
		Help: "Total data service errors by class",
	}, []string{"class"})

	clientCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "data_client_cache_hits_total",
		Help: "Total 304 responses answered from the client cache",
	})
)

// Keys under which the client remembers the last /data response.
const (
	keyData = "client:data"
	keyETag = "client:etag"
)

const msgCacheEmpty = "cache empty"

// Config holds the client configuration.
type Config struct {
	// BaseURL of the data service, e.g. "http://localhost:3000".
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout for a single HTTP attempt.
	Timeout time.Duration

	// Retry controls backoff for server and network errors.
	Retry RetryConfig

	// MaxConcurrency bounds parallel requests in FetchEntries.
	MaxConcurrency int

	// Cache holds the last /data body and ETag. Defaults to a MemoryStore
	// with CacheTTL.
	Cache    cache.Store
	CacheTTL time.Duration
}

// DefaultConfig returns a default configuration for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		UserAgent:      "data-service-client/1.0",
		Timeout:        10 * time.Second,
		Retry:          DefaultRetryConfig(),
		MaxConcurrency: 5,
		CacheTTL:       cache.DefaultTTL,
	}
}

// Client talks to a data service instance.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cache      cache.Store
	config     Config
	logger     zerolog.Logger
}

// DataResponse is the result of GetData.
type DataResponse struct {
	Body      []byte
	ETag      string
	FromCache bool
}

// response is a fully read HTTP response.
type response struct {
	status int
	header http.Header
	body   []byte
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.Retry = cfg.Retry.withDefaults()

	store := cfg.Cache
	if store == nil {
		store = cache.NewMemoryStore(cfg.CacheTTL)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		cache:      store,
		config:     cfg,
		logger:     logging.NewLogger("client"),
	}, nil
}

// do executes a request with retry logic. route is the templated path used
// as metric label. 4xx responses are returned to the caller, not retried.
func (c *Client) do(ctx context.Context, method, path, route string, body []byte, header http.Header) (*response, error) {
	startTime := time.Now()
	defer func() {
		clientRequestDuration.WithLabelValues(route).Observe(time.Since(startTime).Seconds())
	}()

	var resp *response
	err := retryWithBackoff(ctx, c.config.Retry, c.logger, func() (ErrorClass, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return ErrorClassClient, fmt.Errorf("create request: %w", err)
		}
		for k, v := range header {
			req.Header[k] = v
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				// Cancelled by the caller; retrying cannot help.
				return ErrorClassClient, fmt.Errorf("%w: %v", ErrContextCancelled, err)
			}
			c.logger.Warn().Err(err).Str("route", route).Msg("HTTP request failed")
			clientErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			clientRequestsTotal.WithLabelValues(route, "network_error").Inc()
			return ErrorClassNetwork, err
		}
		defer httpResp.Body.Close()

		data, err := io.ReadAll(httpResp.Body)
		if err != nil {
			clientErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return ErrorClassNetwork, fmt.Errorf("read body: %w", err)
		}
		clientRequestsTotal.WithLabelValues(route, strconv.Itoa(httpResp.StatusCode)).Inc()

		if httpResp.StatusCode >= 500 {
			clientErrorsTotal.WithLabelValues(string(ErrorClassServer)).Inc()
			return ErrorClassServer, apiError(httpResp.StatusCode, data)
		}

		resp = &response{status: httpResp.StatusCode, header: httpResp.Header, body: data}
		return "", nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// apiError builds an APIError from a response, using the JSON "error" or
// "message" field when present.
func apiError(status int, body []byte) *APIError {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := http.StatusText(status)
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "":
			msg = payload.Error
		case payload.Message != "":
			msg = payload.Message
		}
	}

	e := &APIError{
		StatusCode: status,
		ErrorClass: classifyStatus(status),
		Message:    msg,
	}
	switch status {
	case http.StatusNotFound:
		e.Err = ErrNotFound
	case http.StatusBadRequest:
		e.Err = ErrInvalidData
	}
	if e.ErrorClass == ErrorClassClient {
		clientErrorsTotal.WithLabelValues(string(ErrorClassClient)).Inc()
	}
	return e
}

// GetData fetches the full dataset. The last body and ETag are remembered so
// repeated calls send If-None-Match and reuse the body on 304.
func (c *Client) GetData(ctx context.Context) (*DataResponse, error) {
	// Step 1: Look up the remembered response
	cached, err := c.cache.GetMany(ctx, keyData, keyETag)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client cache get error")
		cached = nil
	}
	dataEntry, etagEntry := cached[keyData], cached[keyETag]

	header := http.Header{}
	if dataEntry != nil && etagEntry != nil {
		req := &http.Request{Header: header}
		cache.AddConditionalHeaders(req, string(etagEntry.Value))
		c.logger.Debug().
			Str("etag", string(etagEntry.Value)).
			Msg("Making conditional request")
	}

	// Step 2: Execute
	resp, err := c.do(ctx, http.MethodGet, "/data", "/data", nil, header)
	if err != nil {
		return nil, err
	}

	// Step 3: Interpret
	switch resp.status {
	case http.StatusNotModified:
		if dataEntry == nil || etagEntry == nil {
			return nil, fmt.Errorf("unexpected 304 without cached data")
		}
		clientCacheHits.Inc()
		c.logger.Debug().Msg("304 Not Modified - using cache")
		return &DataResponse{
			Body:      dataEntry.Value,
			ETag:      string(etagEntry.Value),
			FromCache: true,
		}, nil

	case http.StatusOK:
		etag := resp.header.Get("ETag")
		if etag == "" {
			if isCacheEmpty(resp.body) {
				c.forget(ctx)
				return nil, ErrCacheEmpty
			}
			return nil, fmt.Errorf("response without etag")
		}
		if err := c.cache.SetMany(ctx, map[string][]byte{
			keyData: resp.body,
			keyETag: []byte(etag),
		}); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to remember response")
		}
		return &DataResponse{Body: resp.body, ETag: etag}, nil

	default:
		return nil, apiError(resp.status, resp.body)
	}
}

// forget drops the remembered /data response.
func (c *Client) forget(ctx context.Context) {
	for _, key := range []string{keyData, keyETag} {
		if err := c.cache.Delete(ctx, key); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Failed to forget cached response")
		}
	}
}

func isCacheEmpty(body []byte) bool {
	var payload struct {
		Message string `json:"message"`
	}
	return json.Unmarshal(body, &payload) == nil && payload.Message == msgCacheEmpty
}

// Dataset fetches /data and decodes it into a Dataset.
func (c *Client) Dataset(ctx context.Context) (*dataset.Dataset, error) {
	resp, err := c.GetData(ctx)
	if err != nil {
		return nil, err
	}
	var ds dataset.Dataset
	if err := json.Unmarshal(resp.Body, &ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return &ds, nil
}

// PutData replaces the service's dataset with v encoded as JSON.
func (c *Client) PutData(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	return c.PutRaw(ctx, body)
}

// PutRaw replaces the service's dataset with an already encoded JSON body.
func (c *Client) PutRaw(ctx context.Context, body []byte) error {
	if body == nil {
		body = []byte{}
	}
	resp, err := c.do(ctx, http.MethodPut, "/data", "/data", body, nil)
	if err != nil {
		return err
	}
	if resp.status != http.StatusOK {
		return apiError(resp.status, resp.body)
	}
	c.logger.Info().Int("size", len(body)).Msg("Dataset replaced")
	return nil
}

// Collection fetches the raw JSON value of a collection.
func (c *Client) Collection(ctx context.Context, coll dataset.Collection) (json.RawMessage, error) {
	resp, err := c.do(ctx, http.MethodGet, coll.Path(), coll.Path(), nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, apiError(resp.status, resp.body)
	}
	return json.RawMessage(resp.body), nil
}

// Entry fetches the raw JSON of one entry by id.
func (c *Client) Entry(ctx context.Context, coll dataset.Collection, id int) (json.RawMessage, error) {
	path := coll.Path() + "/" + strconv.Itoa(id)
	resp, err := c.do(ctx, http.MethodGet, path, coll.Path()+"/{id}", nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, apiError(resp.status, resp.body)
	}
	return json.RawMessage(resp.body), nil
}

// People fetches the people collection.
func (c *Client) People(ctx context.Context) ([]dataset.Person, error) {
	return getCollection[[]dataset.Person](ctx, c, dataset.People)
}

// Cars fetches the cars collection.
func (c *Client) Cars(ctx context.Context) ([]dataset.Car, error) {
	return getCollection[[]dataset.Car](ctx, c, dataset.Cars)
}

// Animals fetches the animals collection.
func (c *Client) Animals(ctx context.Context) ([]dataset.Animal, error) {
	return getCollection[[]dataset.Animal](ctx, c, dataset.Animals)
}

// Person fetches one person by id.
func (c *Client) Person(ctx context.Context, id int) (*dataset.Person, error) {
	return getEntry[dataset.Person](ctx, c, dataset.People, id)
}

// Car fetches one car by id.
func (c *Client) Car(ctx context.Context, id int) (*dataset.Car, error) {
	return getEntry[dataset.Car](ctx, c, dataset.Cars, id)
}

// Animal fetches one animal by id.
func (c *Client) Animal(ctx context.Context, id int) (*dataset.Animal, error) {
	return getEntry[dataset.Animal](ctx, c, dataset.Animals, id)
}

func getCollection[T any](ctx context.Context, c *Client, coll dataset.Collection) (T, error) {
	var out T
	raw, err := c.Collection(ctx, coll)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", coll, err)
	}
	return out, nil
}

func getEntry[T any](ctx context.Context, c *Client, coll dataset.Collection, id int) (*T, error) {
	raw, err := c.Entry(ctx, coll, id)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Noun(), err)
	}
	return &out, nil
}

// Close releases the client cache.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return c.cache.Close()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
