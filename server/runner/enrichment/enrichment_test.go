package enrichment

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/quillnote/internal/observability"
	"github.com/hrygo/quillnote/plugin/ai/aitest"
	"github.com/hrygo/quillnote/plugin/ai/enrich"
	"github.com/hrygo/quillnote/store"
)

// MockNoteStore is a mock for NoteStore.
type MockNoteStore struct {
	mock.Mock
}

func (m *MockNoteStore) ListNotes(ctx context.Context, find *store.FindNote) ([]*store.Note, error) {
	args := m.Called(ctx, find)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Note), args.Error(1)
}

func (m *MockNoteStore) CreateNotes(ctx context.Context, creates []*store.Note) ([]*store.Note, error) {
	args := m.Called(ctx, creates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Note), args.Error(1)
}

func (m *MockNoteStore) UpdateNotes(ctx context.Context, updates []*store.UpdateNote) error {
	args := m.Called(ctx, updates)
	return args.Error(0)
}

type ports struct {
	chat     *aitest.MockChatCompleter
	embedder *aitest.MockEmbedder
}

func newPorts() *ports {
	return &ports{chat: &aitest.MockChatCompleter{}, embedder: &aitest.MockEmbedder{}}
}

func (p *ports) service(notes enrich.NoteReader) *enrich.Service {
	return enrich.New(p.chat, p.embedder, notes, enrich.DefaultOptions()).WithMetrics(observability.NewMetrics())
}

// slowTagger counts concurrent calls.
type slowTagger struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (s *slowTagger) TryGenerateTags(ctx context.Context, title, content string) (string, error) {
	s.calls.Add(1)
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return "tag", nil
}

func TestRunEach_KeepsInputOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	results := runEach(context.Background(), 3, items, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		if n == 4 {
			return 0, errors.New("four")
		}
		return n * 10, nil
	})

	require.Len(t, results, len(items))
	for i, n := range items {
		if n == 4 {
			assert.EqualError(t, results[i].err, "four")
			continue
		}
		assert.NoError(t, results[i].err)
		assert.Equal(t, n*10, results[i].value)
	}
}

func TestRunEach_CanceledContextSkipsWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	results := runEach(ctx, 2, []string{"a", "b"}, func(context.Context, string) (string, error) {
		calls.Add(1)
		return "", nil
	})

	assert.Zero(t, calls.Load())
	for _, r := range results {
		assert.ErrorIs(t, r.err, context.Canceled)
	}
}
