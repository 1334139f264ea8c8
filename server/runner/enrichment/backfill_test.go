package enrichment

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	aierrors "github.com/hrygo/quillnote/internal/errors"
	"github.com/hrygo/quillnote/plugin/ai/aitest"
	"github.com/hrygo/quillnote/store"
	teststore "github.com/hrygo/quillnote/store/test"
)

func createNote(ctx context.Context, t *testing.T, s *store.Store, ownerID, title, tags string) *store.Note {
	t.Helper()
	note, err := s.CreateNote(ctx, &store.Note{OwnerID: ownerID, Title: title, Content: "content of " + title, Tags: tags})
	require.NoError(t, err)
	return note
}

func getNote(ctx context.Context, t *testing.T, s *store.Store, id string) *store.Note {
	t.Helper()
	note, err := s.GetNote(ctx, &store.FindNote{ID: &id})
	require.NoError(t, err)
	require.NotNil(t, note)
	return note
}

func TestBackfillTags_IsolatesFailures(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	n5 := createNote(ctx, t, ts, "u1", "N5", "")
	n6 := createNote(ctx, t, ts, "u1", "N6", "")

	p := newPorts()
	p.chat.On("CompleteChat", mock.Anything, aitest.UserMessageContains("Title: N5"), mock.Anything).
		Return("", aierrors.ServiceUnavailable("provider down"))
	p.chat.On("CompleteChat", mock.Anything, aitest.UserMessageContains("Title: N6"), mock.Anything).
		Return("alpha, beta", nil)

	outcome, err := NewBackfiller(ts, p.service(ts)).BackfillTags(ctx, "u1", false)
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Total)
	assert.Equal(t, 1, outcome.Processed)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], `"N5"`)

	assert.Equal(t, "", getNote(ctx, t, ts, n5.ID).Tags)
	assert.Equal(t, "alpha, beta", getNote(ctx, t, ts, n6.ID).Tags)
}

func TestBackfillTags_OnlyMissing(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	untagged := createNote(ctx, t, ts, "u2", "untagged", "")
	tagged := createNote(ctx, t, ts, "u2", "tagged", "x")

	p := newPorts()
	p.chat.On("CompleteChat", mock.Anything, mock.Anything, mock.Anything).Return("fresh", nil)

	outcome, err := NewBackfiller(ts, p.service(ts)).BackfillTags(ctx, "u2", true)
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Total)
	assert.Equal(t, 1, outcome.Processed)
	assert.Empty(t, outcome.Errors)
	assert.Equal(t, "fresh", getNote(ctx, t, ts, untagged.ID).Tags)
	assert.Equal(t, "x", getNote(ctx, t, ts, tagged.ID).Tags)
	p.chat.AssertNumberOfCalls(t, "CompleteChat", 1)
}

func TestBackfillTags_AllNotes(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	untagged := createNote(ctx, t, ts, "u2", "untagged", "")
	tagged := createNote(ctx, t, ts, "u2", "tagged", "x")
	createNote(ctx, t, ts, "someone-else", "foreign", "")

	p := newPorts()
	p.chat.On("CompleteChat", mock.Anything, mock.Anything, mock.Anything).Return("fresh", nil)

	outcome, err := NewBackfiller(ts, p.service(ts)).BackfillTags(ctx, "u2", false)
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Total)
	assert.Equal(t, 2, outcome.Processed)
	assert.Equal(t, "fresh", getNote(ctx, t, ts, untagged.ID).Tags)
	assert.Equal(t, "fresh", getNote(ctx, t, ts, tagged.ID).Tags)
}

func TestBackfillTags_EmptyTagsCountAsError(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	note := createNote(ctx, t, ts, "u1", "quiet", "")

	p := newPorts()
	p.chat.On("CompleteChat", mock.Anything, mock.Anything, mock.Anything).Return("   ", nil)

	outcome, err := NewBackfiller(ts, p.service(ts)).BackfillTags(ctx, "u1", true)
	require.NoError(t, err)

	assert.Equal(t, 0, outcome.Processed)
	assert.Len(t, outcome.Errors, 1)
	assert.Equal(t, "", getNote(ctx, t, ts, note.ID).Tags)
}

func TestBackfillTags_RequiresOwner(t *testing.T) {
	notes := &MockNoteStore{}
	_, err := NewBackfiller(notes, &slowTagger{}).BackfillTags(context.Background(), "", false)

	assert.ErrorIs(t, err, ErrOwnerRequired)
	notes.AssertNotCalled(t, "ListNotes", mock.Anything, mock.Anything)
}

func TestBackfillTags_NoNotes(t *testing.T) {
	notes := &MockNoteStore{}
	notes.On("ListNotes", mock.Anything, mock.Anything).Return([]*store.Note{}, nil)

	outcome, err := NewBackfiller(notes, &slowTagger{}).BackfillTags(context.Background(), "u1", true)
	require.NoError(t, err)

	assert.Equal(t, &BatchOutcome{Errors: []string{}}, outcome)
	notes.AssertNotCalled(t, "UpdateNotes", mock.Anything, mock.Anything)
}

func TestBackfillTags_ListFailure(t *testing.T) {
	notes := &MockNoteStore{}
	notes.On("ListNotes", mock.Anything, mock.Anything).Return(nil, errors.New("db gone"))

	_, err := NewBackfiller(notes, &slowTagger{}).BackfillTags(context.Background(), "u1", false)
	assert.ErrorContains(t, err, "db gone")
}

func TestBackfillTags_SaveFailure(t *testing.T) {
	notes := &MockNoteStore{}
	notes.On("ListNotes", mock.Anything, mock.Anything).Return([]*store.Note{{ID: "n1", OwnerID: "u1", Title: "t"}}, nil)
	notes.On("UpdateNotes", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	outcome, err := NewBackfiller(notes, &slowTagger{}).BackfillTags(context.Background(), "u1", false)
	assert.Nil(t, outcome)
	assert.ErrorContains(t, err, "disk full")
}

func TestBackfillTags_BoundedConcurrency(t *testing.T) {
	list := make([]*store.Note, 10)
	for i := range list {
		list[i] = &store.Note{ID: fmt.Sprintf("n%d", i), OwnerID: "u1", Title: fmt.Sprintf("note %d", i)}
	}
	notes := &MockNoteStore{}
	notes.On("ListNotes", mock.Anything, mock.Anything).Return(list, nil)
	notes.On("UpdateNotes", mock.Anything, mock.MatchedBy(func(updates []*store.UpdateNote) bool {
		return len(updates) == len(list)
	})).Return(nil)

	tagger := &slowTagger{}
	outcome, err := NewBackfiller(notes, tagger, WithConcurrency(2)).BackfillTags(context.Background(), "u1", false)
	require.NoError(t, err)

	assert.Equal(t, 10, outcome.Processed)
	assert.EqualValues(t, 10, tagger.calls.Load())
	assert.LessOrEqual(t, tagger.peak.Load(), int32(2))
	notes.AssertExpectations(t)
}

func TestBackfillTags_CanceledContext(t *testing.T) {
	notes := &MockNoteStore{}
	notes.On("ListNotes", mock.Anything, mock.Anything).Return([]*store.Note{
		{ID: "n1", OwnerID: "u1", Title: "a"},
		{ID: "n2", OwnerID: "u1", Title: "b"},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tagger := &slowTagger{}
	outcome, err := NewBackfiller(notes, tagger).BackfillTags(ctx, "u1", false)
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Total)
	assert.Zero(t, outcome.Processed)
	assert.Len(t, outcome.Errors, 2)
	assert.Zero(t, tagger.calls.Load())
	notes.AssertNotCalled(t, "UpdateNotes", mock.Anything, mock.Anything)
}

// deletingTagger removes one note while tags are being generated.
type deletingTagger struct {
	store  *store.Store
	victim *store.Note
}

func (d *deletingTagger) TryGenerateTags(ctx context.Context, title, _ string) (string, error) {
	if title == d.victim.Title {
		if err := d.store.DeleteNote(ctx, &store.DeleteNote{ID: d.victim.ID, OwnerID: d.victim.OwnerID}); err != nil {
			return "", err
		}
	}
	return "tagged", nil
}

func TestBackfillTags_NoteDeletedDuringRun(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	keep1 := createNote(ctx, t, ts, "u1", "keep1", "")
	gone := createNote(ctx, t, ts, "u1", "gone", "")
	keep2 := createNote(ctx, t, ts, "u1", "keep2", "")

	outcome, err := NewBackfiller(ts, &deletingTagger{store: ts, victim: gone}).BackfillTags(ctx, "u1", true)
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.Total)
	assert.Equal(t, 2, outcome.Processed)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], `"gone"`)
	assert.Equal(t, "tagged", getNote(ctx, t, ts, keep1.ID).Tags)
	assert.Equal(t, "tagged", getNote(ctx, t, ts, keep2.ID).Tags)
}

func TestBackfillTags_FallsBackToSingleSaves(t *testing.T) {
	notes := &MockNoteStore{}
	notes.On("ListNotes", mock.Anything, mock.Anything).Return([]*store.Note{
		{ID: "n1", OwnerID: "u1", Title: "first"},
		{ID: "n2", OwnerID: "u1", Title: "second"},
	}, nil)
	notes.On("UpdateNotes", mock.Anything, mock.MatchedBy(func(u []*store.UpdateNote) bool { return len(u) == 2 })).
		Return(fmt.Errorf("update note n2: %w", store.ErrNoteNotFound))
	notes.On("UpdateNotes", mock.Anything, mock.MatchedBy(func(u []*store.UpdateNote) bool { return len(u) == 1 && u[0].ID == "n1" })).
		Return(nil)
	notes.On("UpdateNotes", mock.Anything, mock.MatchedBy(func(u []*store.UpdateNote) bool { return len(u) == 1 && u[0].ID == "n2" })).
		Return(fmt.Errorf("update note n2: %w", store.ErrNoteNotFound))

	outcome, err := NewBackfiller(notes, &slowTagger{}).BackfillTags(context.Background(), "u1", false)
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Processed)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], `"second"`)
	notes.AssertNumberOfCalls(t, "UpdateNotes", 3)
}
