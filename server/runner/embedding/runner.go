// Package embedding backfills note embeddings in the background.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/quillnote/store"
)

// Embedder produces an embedding and reports provider failures.
type Embedder interface {
	TryGenerateEmbedding(ctx context.Context, content string) ([]float32, error)
}

// NoteStore is the slice of the store the runner uses.
type NoteStore interface {
	ListNotes(ctx context.Context, find *store.FindNote) ([]*store.Note, error)
	UpdateNotes(ctx context.Context, updates []*store.UpdateNote) error
}

type Runner struct {
	store     NoteStore
	embedder  Embedder
	interval  time.Duration
	batchSize int
}

// NewRunner creates an embedding runner.
// Small batches keep provider bursts short; the rate limiter does the rest.
func NewRunner(store NoteStore, embedder Embedder) *Runner {
	return &Runner{
		store:     store,
		embedder:  embedder,
		interval:  2 * time.Minute,
		batchSize: 8,
	}
}

// Run embeds pending notes on startup and then on every tick until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	r.processPendingNotes(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.processPendingNotes(ctx)
		case <-ctx.Done():
			slog.Info("embedding runner stopped")
			return
		}
	}
}

// RunOnce processes pending notes once and returns how many were embedded.
func (r *Runner) RunOnce(ctx context.Context) int {
	return r.processPendingNotes(ctx)
}

func (r *Runner) processPendingNotes(ctx context.Context) int {
	embedded := 0
	var after *store.NoteCursor
	for {
		notes, err := r.findNotesWithoutEmbedding(ctx, after)
		if err != nil {
			slog.Error("failed to find notes without embedding", "error", err)
			return embedded
		}
		if len(notes) == 0 {
			return embedded
		}

		slog.Info("processing notes for embedding", "count", len(notes))

		for i := 0; i < len(notes); i += r.batchSize {
			select {
			case <-ctx.Done():
				slog.Info("embedding processing cancelled", "processed", i, "total", len(notes))
				return embedded
			default:
			}

			end := min(i+r.batchSize, len(notes))
			batch := notes[i:end]

			n, err := r.processBatch(ctx, batch)
			if err != nil {
				slog.Error("failed to process batch", "error", err)
				continue
			}
			embedded += n
			slog.Info("batch processed", "count", n, "progress", fmt.Sprintf("%d/%d", end, len(notes)))
		}

		// Notes that could not be embedded stay pending; page past them.
		if len(notes) < r.pageSize() {
			return embedded
		}
		last := notes[len(notes)-1]
		after = &store.NoteCursor{CreatedTs: last.CreatedTs, ID: last.ID}
	}
}

func (r *Runner) pageSize() int {
	return r.batchSize * 20
}

func (r *Runner) findNotesWithoutEmbedding(ctx context.Context, after *store.NoteCursor) ([]*store.Note, error) {
	limit := r.pageSize()
	return r.store.ListNotes(ctx, &store.FindNote{
		MissingEmbedding: true,
		After:            after,
		Limit:            &limit,
	})
}

func (r *Runner) processBatch(ctx context.Context, notes []*store.Note) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	updates := make([]*store.UpdateNote, 0, len(notes))
	for _, n := range notes {
		vector, err := r.embedder.TryGenerateEmbedding(ctx, n.Content)
		if err != nil {
			slog.Warn("failed to embed note", "noteID", n.ID, "error", err)
			continue
		}
		if len(vector) == 0 {
			continue
		}
		updates = append(updates, &store.UpdateNote{ID: n.ID, Embedding: &vector})
	}

	if len(updates) == 0 {
		return 0, nil
	}
	err := r.store.UpdateNotes(ctx, updates)
	if err == nil {
		return len(updates), nil
	}
	if !errors.Is(err, store.ErrNoteNotFound) {
		return 0, err
	}

	// A note was deleted after it was listed; save the others one by one.
	saved := 0
	for _, u := range updates {
		if err := r.store.UpdateNotes(ctx, []*store.UpdateNote{u}); err != nil {
			slog.Warn("failed to save embedding", "noteID", u.ID, "error", err)
			continue
		}
		saved++
	}
	return saved, nil
}
