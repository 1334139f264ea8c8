package store

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
)

// Note is a user note together with its AI enrichment.
type Note struct {
	ID      string
	OwnerID string

	Title   string
	Content string
	// Summary is empty when absent.
	Summary string
	// Tags is a comma-separated list, empty when absent.
	Tags string
	// Embedding is nil when the note was never enriched or enrichment failed.
	// An empty vector is persisted as NULL.
	Embedding []float32

	CreatedTs int64
	UpdatedTs int64
}

// NoteCursor is a position in the (created_ts, id) listing order.
type NoteCursor struct {
	CreatedTs int64
	ID        string
}

// FindNote is the find condition for notes.
type FindNote struct {
	ID      *string
	OwnerID *string
	// IDList keeps only the listed ids; a non-nil empty list matches nothing.
	IDList []string

	// HasEmbedding keeps only notes with a stored embedding.
	HasEmbedding bool
	// MissingEmbedding keeps only notes without a stored embedding.
	MissingEmbedding bool
	// MissingTags keeps only notes whose tags are empty.
	MissingTags bool

	// After keeps only notes listed after the cursor, for keyset paging.
	After *NoteCursor
	Limit *int
}

// UpdateNote describes a partial update. Nil fields are left unchanged.
type UpdateNote struct {
	ID string

	Title   *string
	Content *string
	Summary *string
	Tags    *string
	// Embedding replaces the stored vector; an empty slice clears it.
	Embedding *[]float32
	UpdatedTs *int64
}

// DeleteNote deletes a single note owned by OwnerID.
type DeleteNote struct {
	ID      string
	OwnerID string
}

// ErrNoteNotFound is returned when an update or delete matches no row.
var ErrNoteNotFound = errors.New("note not found")

// CreateNote creates a single note.
func (s *Store) CreateNote(ctx context.Context, create *Note) (*Note, error) {
	list, err := s.CreateNotes(ctx, []*Note{create})
	if err != nil {
		return nil, err
	}
	return list[0], nil
}

// CreateNotes creates notes in a single transaction, assigning ids and timestamps when unset.
func (s *Store) CreateNotes(ctx context.Context, creates []*Note) ([]*Note, error) {
	if len(creates) == 0 {
		return []*Note{}, nil
	}

	now := time.Now().Unix()
	for _, note := range creates {
		if note.OwnerID == "" {
			return nil, errors.New("note owner is required")
		}
		if note.ID == "" {
			note.ID = shortuuid.New()
		}
		if note.CreatedTs == 0 {
			note.CreatedTs = now
		}
		if note.UpdatedTs == 0 {
			note.UpdatedTs = note.CreatedTs
		}
		if len(note.Embedding) == 0 {
			note.Embedding = nil
		}
	}

	return s.driver.CreateNotes(ctx, creates)
}

// ListNotes lists notes matching find.
func (s *Store) ListNotes(ctx context.Context, find *FindNote) ([]*Note, error) {
	return s.driver.ListNotes(ctx, find)
}

// GetNote returns the first note matching find, or nil when none does.
func (s *Store) GetNote(ctx context.Context, find *FindNote) (*Note, error) {
	limit := 1
	find.Limit = &limit
	list, err := s.driver.ListNotes(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateNote applies a single partial update.
func (s *Store) UpdateNote(ctx context.Context, update *UpdateNote) error {
	return s.UpdateNotes(ctx, []*UpdateNote{update})
}

// UpdateNotes applies partial updates in a single transaction.
func (s *Store) UpdateNotes(ctx context.Context, updates []*UpdateNote) error {
	if len(updates) == 0 {
		return nil
	}

	now := time.Now().Unix()
	for _, update := range updates {
		if update.ID == "" {
			return errors.New("note id is required")
		}
		if update.UpdatedTs == nil {
			update.UpdatedTs = &now
		}
	}

	return s.driver.UpdateNotes(ctx, updates)
}

// DeleteNote deletes a note owned by delete.OwnerID.
func (s *Store) DeleteNote(ctx context.Context, delete *DeleteNote) error {
	return s.driver.DeleteNote(ctx, delete)
}
