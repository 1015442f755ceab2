package client

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Sternrassler/data-service/internal/testutil"
	"github.com/Sternrassler/data-service/pkg/dataset"
)

func TestFetchEntries(t *testing.T) {
	ts := setupService(t)
	c := newTestClient(t, ts.URL)

	result, err := c.FetchEntries(context.Background(), dataset.People, []int{3, 1, 99, 2, 2, 42})
	if err != nil {
		t.Fatalf("FetchEntries failed: %v", err)
	}

	if len(result.Entries) != 3 {
		t.Errorf("len(Entries) = %d, want 3", len(result.Entries))
	}
	if got := string(result.Entries[2]); got != `{"id":2,"name":"João"}` {
		t.Errorf("Entries[2] = %s", got)
	}
	if len(result.Missing) != 2 || result.Missing[0] != 42 || result.Missing[1] != 99 {
		t.Errorf("Missing = %v, want [42 99]", result.Missing)
	}
}

func TestFetchEntries_Empty(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")

	result, err := c.FetchEntries(context.Background(), dataset.Cars, nil)
	if err != nil {
		t.Fatalf("FetchEntries failed: %v", err)
	}
	if len(result.Entries) != 0 || len(result.Missing) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}

func TestFetchEntries_AbortsOnServerError(t *testing.T) {
	mock := testutil.NewMockDataService()
	defer mock.Close()
	mock.SetResponse("/cars/1", testutil.NewServerErrorResponse())

	c := newTestClient(t, mock.URL())
	c.config.MaxConcurrency = 1

	_, err := c.FetchEntries(context.Background(), dataset.Cars, []int{1})
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected wrapped 500 APIError, got %v", err)
	}
}
