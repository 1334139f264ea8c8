package test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/quillnote/store"
)

func TestNoteStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	note, err := ts.CreateNote(ctx, &store.Note{
		OwnerID:   "u1",
		Title:     "Rust borrow checker",
		Content:   "Ownership rules explained.",
		Summary:   "Ownership in Rust.",
		Tags:      "rust, ownership",
		Embedding: []float32{0.1, 0.2, 0.3},
	})
	require.NoError(t, err)
	require.NotEmpty(t, note.ID)
	assert.NotZero(t, note.CreatedTs)
	assert.Equal(t, note.CreatedTs, note.UpdatedTs)

	got, err := ts.GetNote(ctx, &store.FindNote{ID: &note.ID})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.OwnerID)
	assert.Equal(t, "Rust borrow checker", got.Title)
	assert.Equal(t, "Ownership in Rust.", got.Summary)
	assert.Equal(t, "rust, ownership", got.Tags)
	assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3}, got.Embedding, 1e-6)

	missing := "missing"
	got, err = ts.GetNote(ctx, &store.FindNote{ID: &missing})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNoteStore_EmptyEmbeddingIsNull(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, err := ts.CreateNotes(ctx, []*store.Note{
		{OwnerID: "u1", Title: "no vector", Embedding: []float32{}},
		{OwnerID: "u1", Title: "with vector", Embedding: []float32{1, 0}},
	})
	require.NoError(t, err)

	owner := "u1"
	embedded, err := ts.ListNotes(ctx, &store.FindNote{OwnerID: &owner, HasEmbedding: true})
	require.NoError(t, err)
	require.Len(t, embedded, 1)
	assert.Equal(t, "with vector", embedded[0].Title)

	missing, err := ts.ListNotes(ctx, &store.FindNote{OwnerID: &owner, MissingEmbedding: true})
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "no vector", missing[0].Title)
	assert.Nil(t, missing[0].Embedding)
}

func TestNoteStore_ListFilters(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, err := ts.CreateNotes(ctx, []*store.Note{
		{OwnerID: "u1", Title: "tagged", Tags: "go"},
		{OwnerID: "u1", Title: "untagged"},
		{OwnerID: "u2", Title: "someone else"},
	})
	require.NoError(t, err)

	owner := "u1"
	all, err := ts.ListNotes(ctx, &store.FindNote{OwnerID: &owner})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	untagged, err := ts.ListNotes(ctx, &store.FindNote{OwnerID: &owner, MissingTags: true})
	require.NoError(t, err)
	require.Len(t, untagged, 1)
	assert.Equal(t, "untagged", untagged[0].Title)

	limit := 1
	limited, err := ts.ListNotes(ctx, &store.FindNote{Limit: &limit})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestNoteStore_ListByIDList(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	notes, err := ts.CreateNotes(ctx, []*store.Note{
		{OwnerID: "u1", Title: "a"},
		{OwnerID: "u1", Title: "b"},
		{OwnerID: "u2", Title: "c"},
	})
	require.NoError(t, err)

	owner := "u1"
	got, err := ts.ListNotes(ctx, &store.FindNote{OwnerID: &owner, IDList: []string{notes[1].ID, notes[2].ID, "missing"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Title)

	none, err := ts.ListNotes(ctx, &store.FindNote{IDList: []string{}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNoteStore_ListAfterCursor(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, err := ts.CreateNotes(ctx, []*store.Note{
		{ID: "n1", OwnerID: "u1", Title: "first", CreatedTs: 100},
		{ID: "n3", OwnerID: "u1", Title: "third", CreatedTs: 200},
		{ID: "n2", OwnerID: "u1", Title: "second", CreatedTs: 200},
		{ID: "n4", OwnerID: "u1", Title: "fourth", CreatedTs: 300},
	})
	require.NoError(t, err)

	limit := 2
	var titles []string
	var after *store.NoteCursor
	for {
		page, err := ts.ListNotes(ctx, &store.FindNote{After: after, Limit: &limit})
		require.NoError(t, err)
		for _, n := range page {
			titles = append(titles, n.Title)
		}
		if len(page) < limit {
			break
		}
		last := page[len(page)-1]
		after = &store.NoteCursor{CreatedTs: last.CreatedTs, ID: last.ID}
	}
	assert.Equal(t, []string{"first", "second", "third", "fourth"}, titles)
}

func TestNoteStore_UpdateNotes(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	notes, err := ts.CreateNotes(ctx, []*store.Note{
		{OwnerID: "u1", Title: "a", Embedding: []float32{1, 1}},
		{OwnerID: "u1", Title: "b"},
	})
	require.NoError(t, err)

	tags := "alpha, beta"
	cleared := []float32{}
	vector := []float32{0.5, 0.5}
	require.NoError(t, ts.UpdateNotes(ctx, []*store.UpdateNote{
		{ID: notes[0].ID, Tags: &tags, Embedding: &cleared},
		{ID: notes[1].ID, Embedding: &vector},
	}))

	a, err := ts.GetNote(ctx, &store.FindNote{ID: &notes[0].ID})
	require.NoError(t, err)
	assert.Equal(t, "alpha, beta", a.Tags)
	assert.Nil(t, a.Embedding)
	assert.Equal(t, "a", a.Title)

	b, err := ts.GetNote(ctx, &store.FindNote{ID: &notes[1].ID})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, b.Embedding)
}

func TestNoteStore_UpdateNotesIsAtomic(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	note, err := ts.CreateNote(ctx, &store.Note{OwnerID: "u1", Title: "a"})
	require.NoError(t, err)

	tags := "kept?"
	err = ts.UpdateNotes(ctx, []*store.UpdateNote{
		{ID: note.ID, Tags: &tags},
		{ID: "does-not-exist", Tags: &tags},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNoteNotFound))

	got, err := ts.GetNote(ctx, &store.FindNote{ID: &note.ID})
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}

func TestNoteStore_DeleteNoteScopedByOwner(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	note, err := ts.CreateNote(ctx, &store.Note{OwnerID: "u1", Title: "a"})
	require.NoError(t, err)

	err = ts.DeleteNote(ctx, &store.DeleteNote{ID: note.ID, OwnerID: "u2"})
	assert.True(t, errors.Is(err, store.ErrNoteNotFound))

	require.NoError(t, ts.DeleteNote(ctx, &store.DeleteNote{ID: note.ID, OwnerID: "u1"}))
	got, err := ts.GetNote(ctx, &store.FindNote{ID: &note.ID})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNoteStore_MigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	assert.NoError(t, ts.Migrate(ctx))
}

func TestNoteStore_CreateRequiresOwner(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, err := ts.CreateNote(ctx, &store.Note{Title: "orphan"})
	assert.Error(t, err)
}
