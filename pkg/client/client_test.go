package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/data-service/internal/testutil"
	"github.com/Sternrassler/data-service/pkg/cache"
	"github.com/Sternrassler/data-service/pkg/dataset"
	"github.com/Sternrassler/data-service/pkg/server"
	"github.com/Sternrassler/data-service/pkg/snapshot"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	cfg := DefaultConfig(baseURL)
	cfg.Retry = fastRetryConfig()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// setupService starts a real data service seeded with the default dataset.
func setupService(t *testing.T) *httptest.Server {
	t.Helper()

	store := cache.NewMemoryStore(time.Hour)
	snapshots := snapshot.NewManager(store, zerolog.New(io.Discard))
	if _, err := snapshots.Seed(context.Background(), dataset.Seed()); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	srv, err := server.New(server.DefaultConfig(), store, snapshots)
	if err != nil {
		t.Fatalf("server.New failed: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		baseURL     string
		expectError bool
	}{
		{name: "valid http", baseURL: "http://localhost:3000"},
		{name: "valid https with trailing slash", baseURL: "https://data.example.com/"},
		{name: "empty", baseURL: "", expectError: true},
		{name: "unsupported scheme", baseURL: "ftp://localhost", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(DefaultConfig(tt.baseURL))
			if tt.expectError {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			defer c.Close()
			if c.baseURL[len(c.baseURL)-1] == '/' {
				t.Errorf("baseURL = %q, want trailing slash trimmed", c.baseURL)
			}
		})
	}
}

func TestGetData_ConditionalRequest(t *testing.T) {
	mock := testutil.NewMockDataService()
	defer mock.Close()
	mock.SetHandler("GET /data", testutil.NewConditionalHandler("abc123", `{"people":[]}`))

	c := newTestClient(t, mock.URL())
	ctx := context.Background()

	first, err := c.GetData(ctx)
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	if first.FromCache {
		t.Error("First response should not come from cache")
	}
	if first.ETag != "abc123" {
		t.Errorf("ETag = %q, want abc123", first.ETag)
	}

	second, err := c.GetData(ctx)
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	if !second.FromCache {
		t.Error("Second response should come from cache")
	}
	if string(second.Body) != `{"people":[]}` {
		t.Errorf("Body = %s, want cached body", second.Body)
	}
	if got := mock.GetConditionalCount(); got != 1 {
		t.Errorf("ConditionalCount = %d, want 1", got)
	}
	if got := mock.GetLastRequestHeader().Get("If-None-Match"); got != "abc123" {
		t.Errorf("If-None-Match = %q, want abc123", got)
	}
}

func TestGetData_CachedBodyIsACopy(t *testing.T) {
	const body = `{"people":[]}`
	mock := testutil.NewMockDataService()
	defer mock.Close()
	mock.SetHandler("GET /data", testutil.NewConditionalHandler("abc123", body))

	c := newTestClient(t, mock.URL())
	ctx := context.Background()

	if _, err := c.GetData(ctx); err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	mock.Reset()

	cached, err := c.GetData(ctx)
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	if !cached.FromCache {
		t.Fatal("Second response should come from cache")
	}
	for i := range cached.Body {
		cached.Body[i] = 'X'
	}

	again, err := c.GetData(ctx)
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	if !again.FromCache {
		t.Error("Third response should come from cache")
	}
	if string(again.Body) != body {
		t.Errorf("Body = %s, want %s", again.Body, body)
	}
	if got := mock.GetRequestCount(); got != 2 {
		t.Errorf("RequestCount = %d, want 2", got)
	}
	if got := mock.GetConditionalCount(); got != 2 {
		t.Errorf("ConditionalCount = %d, want 2", got)
	}
}

func TestGetData_ETagChanged(t *testing.T) {
	mock := testutil.NewMockDataService()
	defer mock.Close()
	mock.SetHandler("GET /data", testutil.NewConditionalHandler("v1", `{"cars":[]}`))

	c := newTestClient(t, mock.URL())
	ctx := context.Background()

	if _, err := c.GetData(ctx); err != nil {
		t.Fatalf("GetData failed: %v", err)
	}

	mock.SetHandler("GET /data", testutil.NewConditionalHandler("v2", `{"cars":[{"id":1}]}`))

	resp, err := c.GetData(ctx)
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	if resp.FromCache {
		t.Error("Changed data should not come from cache")
	}
	if resp.ETag != "v2" || string(resp.Body) != `{"cars":[{"id":1}]}` {
		t.Errorf("got (%q, %s), want new etag and body", resp.ETag, resp.Body)
	}
}

func TestGetData_CacheEmpty(t *testing.T) {
	mock := testutil.NewMockDataService()
	defer mock.Close()
	mock.SetResponse("GET /data", testutil.NewCacheEmptyResponse())

	c := newTestClient(t, mock.URL())

	_, err := c.GetData(context.Background())
	if !errors.Is(err, ErrCacheEmpty) {
		t.Errorf("Expected ErrCacheEmpty, got %v", err)
	}
}

func TestGetData_RetriesServerErrors(t *testing.T) {
	mock := testutil.NewMockDataService()
	defer mock.Close()
	mock.SetHandler("GET /data", testutil.NewConditionalHandler("abc", `{}`))
	mock.FailNext("/data", 2, http.StatusInternalServerError)

	c := newTestClient(t, mock.URL())

	resp, err := c.GetData(context.Background())
	if err != nil {
		t.Fatalf("GetData failed: %v", err)
	}
	if resp.ETag != "abc" {
		t.Errorf("ETag = %q, want abc", resp.ETag)
	}
	if got := mock.GetRequestCount(); got != 3 {
		t.Errorf("RequestCount = %d, want 3", got)
	}
}

func TestGetData_RetryExhausted(t *testing.T) {
	mock := testutil.NewMockDataService()
	defer mock.Close()
	mock.SetResponse("GET /data", testutil.NewServerErrorResponse())

	c := newTestClient(t, mock.URL())

	_, err := c.GetData(context.Background())
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("Expected ErrRetryExhausted, got %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected wrapped APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError || apiErr.ErrorClass != ErrorClassServer {
		t.Errorf("APIError = %+v, want 500 server error", apiErr)
	}
	if got := mock.GetRequestCount(); got != 3 {
		t.Errorf("RequestCount = %d, want 3", got)
	}
}

func TestGetData_NetworkError(t *testing.T) {
	mock := testutil.NewMockDataService()
	url := mock.URL()
	mock.Close()

	c := newTestClient(t, url)

	_, err := c.GetData(context.Background())
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
}

func TestGetData_ContextCancelled(t *testing.T) {
	mock := testutil.NewMockDataService()
	defer mock.Close()

	c := newTestClient(t, mock.URL())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetData(ctx)
	if err == nil {
		t.Fatal("Expected error for cancelled context")
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Cancelled request should not be retried: %v", err)
	}
}

func TestPutData(t *testing.T) {
	mock := testutil.NewMockDataService()
	defer mock.Close()
	mock.SetResponse("PUT /data", testutil.NewJSONResponse(http.StatusOK, `{"message":"success"}`))

	c := newTestClient(t, mock.URL())

	ds := dataset.Dataset{People: []dataset.Person{{ID: 7, Name: "Ana"}}}
	if err := c.PutData(context.Background(), ds); err != nil {
		t.Fatalf("PutData failed: %v", err)
	}

	var sent dataset.Dataset
	if err := json.Unmarshal(mock.GetLastRequestBody(), &sent); err != nil {
		t.Fatalf("request body not JSON: %v", err)
	}
	if len(sent.People) != 1 || sent.People[0].Name != "Ana" {
		t.Errorf("sent = %+v, want Ana", sent)
	}
	if got := mock.GetLastRequestHeader().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
}

func TestPutRaw_InvalidData(t *testing.T) {
	mock := testutil.NewMockDataService()
	defer mock.Close()
	mock.SetResponse("PUT /data", testutil.NewJSONResponse(http.StatusBadRequest, `{"error":"invalid data"}`))

	c := newTestClient(t, mock.URL())

	err := c.PutRaw(context.Background(), []byte("null"))
	if !errors.Is(err, ErrInvalidData) {
		t.Errorf("Expected ErrInvalidData, got %v", err)
	}
	// 4xx is not retried
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("RequestCount = %d, want 1", got)
	}
}

func TestClient_AgainstService(t *testing.T) {
	ts := setupService(t)
	c := newTestClient(t, ts.URL)
	ctx := context.Background()

	t.Run("dataset", func(t *testing.T) {
		ds, err := c.Dataset(ctx)
		if err != nil {
			t.Fatalf("Dataset failed: %v", err)
		}
		if len(ds.People) != 3 || len(ds.Cars) != 3 || len(ds.Animals) != 3 {
			t.Errorf("Dataset = %+v, want 3 entries per collection", ds)
		}
	})

	t.Run("collections", func(t *testing.T) {
		people, err := c.People(ctx)
		if err != nil || len(people) != 3 {
			t.Fatalf("People = %v, %v", people, err)
		}
		cars, err := c.Cars(ctx)
		if err != nil || cars[0].Model != "Fusca" {
			t.Fatalf("Cars = %v, %v", cars, err)
		}
		animals, err := c.Animals(ctx)
		if err != nil || animals[2].Name != "Papagaio" {
			t.Fatalf("Animals = %v, %v", animals, err)
		}
	})

	t.Run("entries", func(t *testing.T) {
		person, err := c.Person(ctx, 2)
		if err != nil {
			t.Fatalf("Person failed: %v", err)
		}
		if person.Name != "João" {
			t.Errorf("Person(2).Name = %q, want João", person.Name)
		}

		_, err = c.Car(ctx, 99)
		if !IsNotFound(err) {
			t.Fatalf("Car(99) error = %v, want not found", err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Message != "car not found" {
			t.Errorf("Car(99) error = %v, want message %q", err, "car not found")
		}

		animal, err := c.Animal(ctx, 1)
		if err != nil || animal.Name != "Cachorro" {
			t.Errorf("Animal(1) = %v, %v", animal, err)
		}
	})

	t.Run("put then conditional get", func(t *testing.T) {
		first, err := c.GetData(ctx)
		if err != nil {
			t.Fatalf("GetData failed: %v", err)
		}

		again, err := c.GetData(ctx)
		if err != nil {
			t.Fatalf("GetData failed: %v", err)
		}
		if !again.FromCache || again.ETag != first.ETag {
			t.Errorf("second GetData = %+v, want cached with same etag", again)
		}

		replacement := map[string]any{"people": []map[string]any{{"id": 10, "name": "Ana"}}}
		if err := c.PutData(ctx, replacement); err != nil {
			t.Fatalf("PutData failed: %v", err)
		}

		after, err := c.GetData(ctx)
		if err != nil {
			t.Fatalf("GetData failed: %v", err)
		}
		if after.FromCache || after.ETag == first.ETag {
			t.Errorf("GetData after PUT = %+v, want fresh body with new etag", after)
		}

		if _, err := c.Cars(ctx); !IsNotFound(err) {
			t.Errorf("Cars after PUT error = %v, want not found", err)
		}
	})

	t.Run("invalid put", func(t *testing.T) {
		if err := c.PutRaw(ctx, []byte("false")); !errors.Is(err, ErrInvalidData) {
			t.Errorf("PutRaw(false) = %v, want ErrInvalidData", err)
		}
	})
}
