package enrichment

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hrygo/quillnote/internal/observability"
	"github.com/hrygo/quillnote/store"
)

// DefaultSeedCount is the number of notes SeedNotes creates when none is given.
const DefaultSeedCount = 50

// Enricher produces every enrichment field and reports provider failures.
type Enricher interface {
	TagGenerator
	TryGenerateSummary(ctx context.Context, content string) (string, error)
	TryGenerateEmbedding(ctx context.Context, content string) ([]float32, error)
}

// Seeder fills an account with enriched sample notes.
type Seeder struct {
	notes    NoteStore
	enricher Enricher
	settings
}

// NewSeeder creates a Seeder. Without WithCorpus it uses the embedded corpus.
func NewSeeder(notes NoteStore, enricher Enricher, opts ...Option) *Seeder {
	return &Seeder{notes: notes, enricher: enricher, settings: newSettings(opts)}
}

// SeedNotes generates count sample notes for ownerID, enriches each one and
// creates the fully enriched ones in a single batch. A note whose enrichment
// fails is skipped and reported in the outcome.
func (s *Seeder) SeedNotes(ctx context.Context, ownerID string, count int) (_ *SeedOutcome, err error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	if count <= 0 {
		count = DefaultSeedCount
	}

	corpus := s.corpus
	if corpus == nil {
		if corpus, err = DefaultCorpus(); err != nil {
			return nil, err
		}
	}

	ctx, span := observability.StartEnrichSpan(ctx, "seed_notes",
		attribute.String("owner_id", ownerID),
		attribute.Int("count", count),
	)
	defer func() { observability.EndSpan(span, err) }()

	rc := observability.NewRequestContext(s.logger, "seed_notes", ownerID)
	ctx = observability.WithRequestContext(ctx, rc)
	rc.Info("seeding started", slog.Int("count", count))

	drafts := corpus.Drafts(count)
	results := runEach(ctx, s.concurrency, drafts, func(ctx context.Context, d Draft) (*store.Note, error) {
		return s.enrich(ctx, ownerID, d)
	})

	outcome := &SeedOutcome{NoteIDs: []string{}, Errors: []string{}}
	creates := make([]*store.Note, 0, len(drafts))
	for i, r := range results {
		if r.err != nil {
			outcome.Errors = append(outcome.Errors, itemError(drafts[i].Title, r.err))
			rc.Warn("seed note enrichment failed",
				slog.String("title", drafts[i].Title),
				slog.String("error", r.err.Error()),
			)
			continue
		}
		creates = append(creates, r.value)
	}

	if len(creates) > 0 {
		created, err := s.notes.CreateNotes(ctx, creates)
		if err != nil {
			rc.Error("failed to create seed notes", err)
			return nil, fmt.Errorf("create seed notes: %w", err)
		}
		for _, note := range created {
			outcome.NoteIDs = append(outcome.NoteIDs, note.ID)
		}
	}
	outcome.Created = len(outcome.NoteIDs)

	rc.Info("seeding finished",
		slog.Int("created", outcome.Created),
		slog.Int("errors", len(outcome.Errors)),
		slog.Int64(observability.LogFieldDuration, rc.DurationMs()),
	)
	return outcome, nil
}

func (s *Seeder) enrich(ctx context.Context, ownerID string, d Draft) (*store.Note, error) {
	summary, err := s.enricher.TryGenerateSummary(ctx, d.Content)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	tags, err := s.enricher.TryGenerateTags(ctx, d.Title, d.Content)
	if err != nil {
		return nil, fmt.Errorf("tags: %w", err)
	}
	embedding, err := s.enricher.TryGenerateEmbedding(ctx, d.Content)
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}

	return &store.Note{
		OwnerID:   ownerID,
		Title:     d.Title,
		Content:   d.Content,
		Summary:   summary,
		Tags:      tags,
		Embedding: embedding,
	}, nil
}
