// Package enrichment runs AI enrichment over many notes at once. A failing
// note is recorded in the outcome and never aborts the run.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hrygo/quillnote/internal/observability"
	"github.com/hrygo/quillnote/store"
)

// ErrOwnerRequired is returned when a batch run is started without an owner.
var ErrOwnerRequired = errors.New("owner id is required")

var errNoTags = errors.New("no tags generated")

// TagGenerator produces tags and reports provider failures.
type TagGenerator interface {
	TryGenerateTags(ctx context.Context, title, content string) (string, error)
}

// NoteStore is the slice of the store the workflows use.
type NoteStore interface {
	ListNotes(ctx context.Context, find *store.FindNote) ([]*store.Note, error)
	CreateNotes(ctx context.Context, creates []*store.Note) ([]*store.Note, error)
	UpdateNotes(ctx context.Context, updates []*store.UpdateNote) error
}

// Option configures a workflow.
type Option func(*settings)

type settings struct {
	concurrency int
	logger      *slog.Logger
	corpus      *Corpus
}

// WithConcurrency bounds how many notes are enriched at once.
func WithConcurrency(n int) Option {
	return func(s *settings) { s.concurrency = n }
}

// WithLogger sets the logger used for run and per-note messages.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithCorpus replaces the embedded seed corpus.
func WithCorpus(corpus *Corpus) Option {
	return func(s *settings) { s.corpus = corpus }
}

func newSettings(opts []Option) settings {
	s := settings{concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Backfiller generates tags for existing notes.
type Backfiller struct {
	notes  NoteStore
	tagger TagGenerator
	settings
}

// NewBackfiller creates a Backfiller.
func NewBackfiller(notes NoteStore, tagger TagGenerator, opts ...Option) *Backfiller {
	return &Backfiller{notes: notes, tagger: tagger, settings: newSettings(opts)}
}

// BackfillTags generates tags for ownerID's notes, or only for the untagged
// ones when onlyMissing is set. Successful tags are saved together at the end.
func (b *Backfiller) BackfillTags(ctx context.Context, ownerID string, onlyMissing bool) (_ *BatchOutcome, err error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	ctx, span := observability.StartEnrichSpan(ctx, "backfill_tags",
		attribute.String("owner_id", ownerID),
		attribute.Bool("only_missing", onlyMissing),
	)
	defer func() { observability.EndSpan(span, err) }()

	rc := observability.NewRequestContext(b.logger, "backfill_tags", ownerID)
	ctx = observability.WithRequestContext(ctx, rc)

	notes, err := b.notes.ListNotes(ctx, &store.FindNote{
		OwnerID:     &ownerID,
		MissingTags: onlyMissing,
	})
	if err != nil {
		rc.Error("failed to list notes for tag backfill", err)
		return nil, fmt.Errorf("list notes: %w", err)
	}

	outcome := &BatchOutcome{Total: len(notes), Errors: []string{}}
	rc.Info("tag backfill started", slog.Int("total", outcome.Total), slog.Bool("only_missing", onlyMissing))
	if len(notes) == 0 {
		return outcome, nil
	}

	results := runEach(ctx, b.concurrency, notes, func(ctx context.Context, note *store.Note) (string, error) {
		tags, err := b.tagger.TryGenerateTags(ctx, note.Title, note.Content)
		if err != nil {
			return "", err
		}
		if tags == "" {
			return "", errNoTags
		}
		return tags, nil
	})

	pending := make([]taggedNote, 0, len(notes))
	for i, r := range results {
		note := notes[i]
		if r.err != nil {
			outcome.Errors = append(outcome.Errors, itemError(note.Title, r.err))
			rc.Warn("tag generation failed",
				slog.String(observability.LogFieldNoteID, note.ID),
				slog.String("error", r.err.Error()),
			)
			continue
		}
		tags := r.value
		pending = append(pending, taggedNote{
			title:  note.Title,
			update: &store.UpdateNote{ID: note.ID, Tags: &tags},
		})
	}

	if err := b.save(ctx, rc, pending, outcome); err != nil {
		rc.Error("failed to save tags", err)
		return nil, fmt.Errorf("save tags: %w", err)
	}

	rc.Info("tag backfill finished",
		slog.Int("processed", outcome.Processed),
		slog.Int("errors", len(outcome.Errors)),
		slog.Int64(observability.LogFieldDuration, rc.DurationMs()),
	)
	return outcome, nil
}

type taggedNote struct {
	title  string
	update *store.UpdateNote
}

// save writes all tags in one batch. When a note vanished since it was
// listed, the batch is retried note by note and the missing ones are
// reported as item errors.
func (b *Backfiller) save(ctx context.Context, rc *observability.RequestContext, pending []taggedNote, outcome *BatchOutcome) error {
	if len(pending) == 0 {
		return nil
	}

	updates := make([]*store.UpdateNote, len(pending))
	for i, p := range pending {
		updates[i] = p.update
	}
	err := b.notes.UpdateNotes(ctx, updates)
	if err == nil {
		outcome.Processed = len(updates)
		return nil
	}
	if !errors.Is(err, store.ErrNoteNotFound) {
		return err
	}

	for _, p := range pending {
		if err := b.notes.UpdateNotes(ctx, []*store.UpdateNote{p.update}); err != nil {
			outcome.Errors = append(outcome.Errors, itemError(p.title, err))
			rc.Warn("failed to save tags",
				slog.String(observability.LogFieldNoteID, p.update.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		outcome.Processed++
	}
	return nil
}
