package enrichment

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of notes enriched at the same time.
const DefaultConcurrency = 4

// BatchOutcome reports a tag backfill run.
type BatchOutcome struct {
	// Total is the number of notes considered.
	Total int `json:"total"`
	// Processed is the number of notes whose tags were saved.
	Processed int `json:"processed"`
	// Errors holds one entry per failed note, naming the note title.
	Errors []string `json:"errors"`
}

// SeedOutcome reports a seeding run.
type SeedOutcome struct {
	Created int      `json:"created"`
	NoteIDs []string `json:"note_ids"`
	Errors  []string `json:"errors"`
}

// result is the outcome of enriching one item.
type result[R any] struct {
	value R
	err   error
}

// collector gathers per-item results from concurrent workers in input order.
type collector[R any] struct {
	mu      sync.Mutex
	results []result[R]
}

func newCollector[R any](n int) *collector[R] {
	return &collector[R]{results: make([]result[R], n)}
}

func (c *collector[R]) set(i int, value R, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[i] = result[R]{value: value, err: err}
}

// runEach applies fn to every item with at most limit calls in flight.
// A failing item never stops the others.
func runEach[T, R any](ctx context.Context, limit int, items []T, fn func(context.Context, T) (R, error)) []result[R] {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	c := newCollector[R](len(items))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		g.Go(func() error {
			var zero R
			if err := ctx.Err(); err != nil {
				c.set(i, zero, err)
				return nil
			}
			value, err := fn(ctx, item)
			c.set(i, value, err)
			return nil
		})
	}
	_ = g.Wait()

	return c.results
}

func itemError(title string, err error) string {
	return fmt.Sprintf("note %q: %v", title, err)
}
