// Package enrich generates summaries, tags and embeddings for notes and finds
// related notes by embedding similarity.
//
// The Generate* methods never fail: blank input short-circuits to an empty
// result without calling the provider, and provider errors degrade to an
// empty result after being logged. The Try* variants share the input guards
// but return provider errors, for callers that need per-item failure.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	aierrors "github.com/hrygo/quillnote/internal/errors"
	"github.com/hrygo/quillnote/internal/observability"
	"github.com/hrygo/quillnote/plugin/ai"
	"github.com/hrygo/quillnote/plugin/ai/similarity"
	"github.com/hrygo/quillnote/store"
)

const (
	opSummary   = "summary"
	opTags      = "tags"
	opEmbedding = "embedding"
	opRelated   = "related"
)

// NoteReader is the slice of the store the service reads from.
type NoteReader interface {
	ListNotes(ctx context.Context, find *store.FindNote) ([]*store.Note, error)
}

// Service is the content enrichment service.
type Service struct {
	chat     ai.ChatCompleter
	embedder ai.Embedder
	notes    NoteReader
	opts     Options
	metrics  *observability.Metrics
}

// New creates a Service. opts is copied.
func New(chat ai.ChatCompleter, embedder ai.Embedder, notes NoteReader, opts Options) *Service {
	return &Service{
		chat:     chat,
		embedder: embedder,
		notes:    notes,
		opts:     opts,
		metrics:  observability.GlobalMetrics(),
	}
}

// WithMetrics replaces the metrics sink, mostly for tests.
func (s *Service) WithMetrics(m *observability.Metrics) *Service {
	s.metrics = m
	return s
}

// Options returns a copy of the service tunables.
func (s *Service) Options() Options {
	return s.opts
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// GenerateSummary returns a short summary of content, or "" on blank input or provider failure.
func (s *Service) GenerateSummary(ctx context.Context, content string) string {
	summary, err := s.TryGenerateSummary(ctx, content)
	if err != nil {
		s.degrade(ctx, opSummary, err)
		return ""
	}
	return summary
}

// TryGenerateSummary is GenerateSummary that reports provider failures.
func (s *Service) TryGenerateSummary(ctx context.Context, content string) (summary string, err error) {
	if isBlank(content) {
		return "", nil
	}

	ctx, span := observability.StartEnrichSpan(ctx, opSummary)
	defer func() { observability.EndSpan(span, err) }()
	defer s.track(opSummary, time.Now(), &err)

	response, err := s.chat.CompleteChat(ctx, []ai.Message{
		ai.SystemPrompt(s.opts.SummaryPrompt),
		ai.UserMessage(content),
	}, ai.ChatOptions{
		MaxTokens:   s.opts.SummaryMaxTokens,
		Temperature: s.opts.SummaryTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	return strings.TrimSpace(response), nil
}

// GenerateTags returns a comma-separated tag list for a note, or "" on blank input or provider failure.
func (s *Service) GenerateTags(ctx context.Context, title, content string) string {
	tags, err := s.TryGenerateTags(ctx, title, content)
	if err != nil {
		s.degrade(ctx, opTags, err)
		return ""
	}
	return tags
}

// TryGenerateTags is GenerateTags that reports provider failures.
// A response that normalizes to no tags is reported as malformed.
func (s *Service) TryGenerateTags(ctx context.Context, title, content string) (tags string, err error) {
	if isBlank(title) && isBlank(content) {
		return "", nil
	}

	ctx, span := observability.StartEnrichSpan(ctx, opTags)
	defer func() { observability.EndSpan(span, err) }()
	defer s.track(opTags, time.Now(), &err)

	response, err := s.chat.CompleteChat(ctx, []ai.Message{
		ai.SystemPrompt(s.opts.TagsPrompt),
		ai.UserMessage(formatNote(title, content)),
	}, ai.ChatOptions{
		MaxTokens:   s.opts.TagsMaxTokens,
		Temperature: s.opts.TagsTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate tags: %w", err)
	}

	tags = NormalizeTags(response, s.opts.MaxTags)
	if tags == "" {
		return "", aierrors.MalformedResponse("no tags in model response")
	}
	return tags, nil
}

func formatNote(title, content string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "(untitled)"
	}
	return fmt.Sprintf("Title: %s\n\nContent:\n%s", title, strings.TrimSpace(content))
}

// GenerateEmbedding returns the embedding of content, or nil on blank input or provider failure.
func (s *Service) GenerateEmbedding(ctx context.Context, content string) []float32 {
	embedding, err := s.TryGenerateEmbedding(ctx, content)
	if err != nil {
		s.degrade(ctx, opEmbedding, err)
		return nil
	}
	return embedding
}

// TryGenerateEmbedding is GenerateEmbedding that reports provider failures.
func (s *Service) TryGenerateEmbedding(ctx context.Context, content string) (embedding []float32, err error) {
	if isBlank(content) {
		return nil, nil
	}

	ctx, span := observability.StartEnrichSpan(ctx, opEmbedding)
	defer func() { observability.EndSpan(span, err) }()
	defer s.track(opEmbedding, time.Now(), &err)

	embedding, err = s.embedder.GenerateEmbedding(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("generate embedding: %w", err)
	}
	if len(embedding) == 0 {
		return nil, aierrors.MalformedResponse("empty embedding")
	}
	return embedding, nil
}

// FindRelatedNotes returns the ids of ownerID's notes most similar to
// queryEmbedding, best first, never including excludeNoteID. A non-positive
// topN falls back to the default. Store failures yield an empty result.
func (s *Service) FindRelatedNotes(ctx context.Context, queryEmbedding []float32, ownerID, excludeNoteID string, topN int) []string {
	if len(queryEmbedding) == 0 || ownerID == "" {
		return []string{}
	}
	if topN <= 0 {
		topN = s.opts.DefaultTopN
	}

	ctx, span := observability.StartEnrichSpan(ctx, opRelated,
		attribute.String("owner_id", ownerID),
		attribute.Int("top_n", topN),
	)
	var err error
	defer func() { observability.EndSpan(span, err) }()
	s.metrics.RecordRequest(opRelated)

	notes, err := s.notes.ListNotes(ctx, &store.FindNote{
		OwnerID:      &ownerID,
		HasEmbedding: true,
	})
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("failed to load notes for related search",
			"owner_id", ownerID,
			"error", err,
		)
		s.metrics.RecordFailure(opRelated)
		return []string{}
	}

	candidates := make([]similarity.Candidate, 0, len(notes))
	for _, note := range notes {
		candidates = append(candidates, similarity.Candidate{ID: note.ID, Embedding: note.Embedding})
	}

	return similarity.Rank(queryEmbedding, candidates, excludeNoteID, topN)
}

func (s *Service) track(operation string, start time.Time, err *error) {
	s.metrics.RecordRequest(operation)
	s.metrics.RecordDuration(operation, time.Since(start))
	if *err != nil {
		s.metrics.RecordFailure(operation)
	}
}

func (s *Service) degrade(ctx context.Context, operation string, err error) {
	s.metrics.RecordDegraded(operation)
	observability.LoggerFromContext(ctx).Warn("enrichment degraded to empty result",
		observability.LogFieldOperation, operation,
		observability.LogFieldErrorCode, aierrors.GetCodeFromError(err, aierrors.ErrCodeLLMUnavailable),
		"error", err,
	)
}
