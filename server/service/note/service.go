// Package note creates and maintains notes, keeping their AI enrichment
// current. Enrichment failures never block a write.
package note

import (
	"context"
	"errors"
	"fmt"

	"github.com/hrygo/quillnote/store"
)

const (
	defaultRelatedLimit = 5
	maxRelatedLimit     = 20
)

// ErrOwnerRequired is returned when an operation is called without an owner.
var ErrOwnerRequired = errors.New("owner id is required")

// Enricher fills in summary, tags and embedding and ranks related notes.
// Every method degrades to an empty result instead of failing.
type Enricher interface {
	GenerateSummary(ctx context.Context, content string) string
	GenerateTags(ctx context.Context, title, content string) string
	GenerateEmbedding(ctx context.Context, content string) []float32
	FindRelatedNotes(ctx context.Context, queryEmbedding []float32, ownerID, excludeNoteID string, topN int) []string
}

// NoteStore is the slice of the store the service uses.
type NoteStore interface {
	CreateNote(ctx context.Context, create *store.Note) (*store.Note, error)
	GetNote(ctx context.Context, find *store.FindNote) (*store.Note, error)
	ListNotes(ctx context.Context, find *store.FindNote) ([]*store.Note, error)
	UpdateNote(ctx context.Context, update *store.UpdateNote) error
	DeleteNote(ctx context.Context, delete *store.DeleteNote) error
}

// RelatedNote is a note recommended as similar to another one.
type RelatedNote struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Tags      string `json:"tags"`
	CreatedTs int64  `json:"created_ts"`
}

// Service manages notes and their enrichment.
type Service struct {
	store    NoteStore
	enricher Enricher
}

// NewService creates a new Service instance.
func NewService(s NoteStore, e Enricher) *Service {
	return &Service{store: s, enricher: e}
}

// CreateNote enriches and saves a new note for ownerID.
func (s *Service) CreateNote(ctx context.Context, ownerID, title, content string) (*store.Note, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	summary, tags, embedding := s.enrich(ctx, title, content)
	note, err := s.store.CreateNote(ctx, &store.Note{
		OwnerID:   ownerID,
		Title:     title,
		Content:   content,
		Summary:   summary,
		Tags:      tags,
		Embedding: embedding,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return note, nil
}

// UpdateNoteOptions holds the editable fields; nil leaves a field unchanged.
// Nil options change nothing.
type UpdateNoteOptions struct {
	Title   *string
	Content *string
}

// UpdateNote edits a note. Enrichment is regenerated only when the title or
// content actually changed.
func (s *Service) UpdateNote(ctx context.Context, ownerID, noteID string, opts *UpdateNoteOptions) (*store.Note, error) {
	current, err := s.getNote(ctx, ownerID, noteID)
	if err != nil {
		return nil, err
	}

	if opts == nil {
		return current, nil
	}

	title, content := current.Title, current.Content
	if opts.Title != nil {
		title = *opts.Title
	}
	if opts.Content != nil {
		content = *opts.Content
	}
	if title == current.Title && content == current.Content {
		return current, nil
	}

	summary, tags, embedding := s.enrich(ctx, title, content)
	if err := s.store.UpdateNote(ctx, &store.UpdateNote{
		ID:        current.ID,
		Title:     &title,
		Content:   &content,
		Summary:   &summary,
		Tags:      &tags,
		Embedding: &embedding,
	}); err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}

	return s.getNote(ctx, ownerID, noteID)
}

// GetRelatedNotes returns up to limit notes of ownerID most similar to noteID,
// best first. A note without an embedding has no related notes.
func (s *Service) GetRelatedNotes(ctx context.Context, ownerID, noteID string, limit int) ([]RelatedNote, error) {
	if limit <= 0 {
		limit = defaultRelatedLimit
	}
	if limit > maxRelatedLimit {
		limit = maxRelatedLimit
	}

	current, err := s.getNote(ctx, ownerID, noteID)
	if err != nil {
		return nil, err
	}

	results := []RelatedNote{}
	if len(current.Embedding) == 0 {
		return results, nil
	}

	ids := s.enricher.FindRelatedNotes(ctx, current.Embedding, ownerID, current.ID, limit)
	if len(ids) == 0 {
		return results, nil
	}

	candidates, err := s.store.ListNotes(ctx, &store.FindNote{OwnerID: &ownerID, IDList: ids})
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	byID := make(map[string]*store.Note, len(candidates))
	for _, n := range candidates {
		byID[n.ID] = n
	}

	for _, id := range ids {
		n, ok := byID[id]
		if !ok {
			continue
		}
		results = append(results, RelatedNote{
			ID:        n.ID,
			Title:     n.Title,
			Summary:   n.Summary,
			Tags:      n.Tags,
			CreatedTs: n.CreatedTs,
		})
	}
	return results, nil
}

// DeleteNote deletes a note owned by ownerID.
func (s *Service) DeleteNote(ctx context.Context, ownerID, noteID string) error {
	if ownerID == "" {
		return ErrOwnerRequired
	}
	if err := s.store.DeleteNote(ctx, &store.DeleteNote{ID: noteID, OwnerID: ownerID}); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

func (s *Service) getNote(ctx context.Context, ownerID, noteID string) (*store.Note, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	note, err := s.store.GetNote(ctx, &store.FindNote{ID: &noteID, OwnerID: &ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	if note == nil {
		return nil, fmt.Errorf("%w: %s", store.ErrNoteNotFound, noteID)
	}
	return note, nil
}

func (s *Service) enrich(ctx context.Context, title, content string) (summary, tags string, embedding []float32) {
	summary = s.enricher.GenerateSummary(ctx, content)
	tags = s.enricher.GenerateTags(ctx, title, content)
	embedding = s.enricher.GenerateEmbedding(ctx, content)
	return summary, tags, embedding
}
