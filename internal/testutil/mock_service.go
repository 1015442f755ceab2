// Package testutil provides testing utilities for the data service client.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockDataService is a configurable mock data service for testing.
type MockDataService struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	failures map[string][]MockResponse

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
	LastRequestBody   []byte
}

// NewMockDataService creates a new mock server. Handlers are keyed by
// "METHOD /path" or by "/path" for any method.
func NewMockDataService() *MockDataService {
	mock := &MockDataService{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		failures: make(map[string][]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := readBody(r)

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastRequestBody = body

		// Track conditional requests
		if r.Header.Get("If-None-Match") != "" {
			mock.ConditionalCount++
		}

		// Queued failures are served before the regular handler
		if queue := mock.failures[r.URL.Path]; len(queue) > 0 {
			resp := queue[0]
			mock.failures[r.URL.Path] = queue[1:]
			mock.mu.Unlock()
			writeResponse(w, resp)
			return
		}

		handler, exists := mock.handlers[r.Method+" "+r.URL.Path]
		if !exists {
			handler, exists = mock.handlers[r.URL.Path]
		}
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		// Default handler
		writeResponse(w, NewJSONResponse(http.StatusNotFound, `{"error":"data not found"}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockDataService) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockDataService) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockDataService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.LastRequestBody = nil
}

// SetHandler sets a custom handler for a pattern ("/path" or "METHOD /path").
func (m *MockDataService) SetHandler(pattern string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[pattern] = handler
}

// SetResponse configures a simple response for a pattern.
func (m *MockDataService) SetResponse(pattern string, resp MockResponse) {
	m.SetHandler(pattern, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// FailNext makes the next n requests to path answer with status.
func (m *MockDataService) FailNext(path string, n int, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.failures[path] = append(m.failures[path],
			NewJSONResponse(status, `{"error":"internal error"}`))
	}
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockDataService) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockDataService) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockDataService) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

// GetLastRequestBody returns the body of the most recent request.
func (m *MockDataService) GetLastRequestBody() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestBody
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

func readBody(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}
	body, _ := io.ReadAll(r.Body)
	return body
}

// NewJSONResponse creates a JSON response with the given status.
func NewJSONResponse(status int, body string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewCacheEmptyResponse creates the 200 response the service sends when it
// holds no snapshot.
func NewCacheEmptyResponse() MockResponse {
	return NewJSONResponse(http.StatusOK, `{"message":"cache empty"}`)
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return NewJSONResponse(http.StatusInternalServerError, `{"error":"internal error"}`)
}

// NewConditionalHandler creates a handler that responds with 304 when
// If-None-Match equals etag and with data otherwise.
func NewConditionalHandler(etag string, data string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}
