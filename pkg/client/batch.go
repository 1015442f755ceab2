package client

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Sternrassler/data-service/pkg/dataset"
	"golang.org/x/sync/errgroup"
)

// BatchResult holds the outcome of FetchEntries.
type BatchResult struct {
	// Entries maps id to the raw entry JSON for ids that were found.
	Entries map[int]json.RawMessage

	// Missing lists ids the service answered 404 for, in ascending order.
	Missing []int
}

// FetchEntries fetches several entries of one collection in parallel, at
// most MaxConcurrency at a time. A 404 marks an id as missing; any other
// error aborts the batch and is returned with the entries fetched so far.
func (c *Client) FetchEntries(ctx context.Context, coll dataset.Collection, ids []int) (*BatchResult, error) {
	start := time.Now()
	result := &BatchResult{Entries: make(map[int]json.RawMessage, len(ids))}
	if len(ids) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.MaxConcurrency)

	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		g.Go(func() error {
			raw, err := c.Entry(gctx, coll, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.Entries[id] = raw
				return nil
			case IsNotFound(err):
				result.Missing = append(result.Missing, id)
				return nil
			default:
				return fmt.Errorf("fetch %s %d: %w", coll.Noun(), id, err)
			}
		})
	}

	err := g.Wait()
	slices.Sort(result.Missing)

	event := c.logger.Info()
	if err != nil {
		event = c.logger.Warn().Err(err)
	}
	event.
		Str("collection", coll.Key()).
		Int("requested", len(seen)).
		Int("found", len(result.Entries)).
		Int("missing", len(result.Missing)).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return result, err
}
