package similarity

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{"identical vectors", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"orthogonal vectors", []float32{1, 0, 0}, []float32{0, 1, 0}, 0.0},
		{"opposite vectors", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1.0},
		{"similar vectors", []float32{1, 2, 3}, []float32{1, 2, 4}, 0.9914},
		{"scaled vectors", []float32{1, 2, 3}, []float32{2, 4, 6}, 1.0},
		{"empty vectors", []float32{}, []float32{}, 0.0},
		{"different length", []float32{1, 2}, []float32{1, 2, 3}, 0.0},
		{"zero magnitude", []float32{0, 0, 0}, []float32{1, 2, 3}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-3)
		})
	}
}

func TestRank_RelatedNotesScenario(t *testing.T) {
	candidates := []Candidate{
		{ID: "A", Embedding: []float32{1, 0, 0}},
		{ID: "B", Embedding: []float32{0.9, 0.1, 0}},
		{ID: "C", Embedding: []float32{0, 1, 0}},
	}

	assert.Equal(t, []string{"B", "C"}, Rank([]float32{1, 0, 0}, candidates, "A", 2))
}

func TestRank_SkipsMismatchedDimensions(t *testing.T) {
	candidates := []Candidate{
		{ID: "short", Embedding: []float32{1, 0}},
		{ID: "ok", Embedding: []float32{0, 1, 0}},
		{ID: "long", Embedding: []float32{1, 0, 0, 0}},
	}

	assert.Equal(t, []string{"ok"}, Rank([]float32{1, 0, 0}, candidates, "", 5))
}

func TestRank_TiesKeepInputOrder(t *testing.T) {
	candidates := []Candidate{
		{ID: "first", Embedding: []float32{1, 1}},
		{ID: "best", Embedding: []float32{1, 0}},
		{ID: "second", Embedding: []float32{2, 2}},
		{ID: "third", Embedding: []float32{4, 4}},
	}

	assert.Equal(t, []string{"best", "first", "second", "third"}, Rank([]float32{1, 0}, candidates, "", 0))
}

func TestRank_EmptyInputs(t *testing.T) {
	candidates := []Candidate{{ID: "A", Embedding: []float32{1}}}

	assert.Empty(t, Rank(nil, candidates, "", 5))
	assert.Empty(t, Rank([]float32{1}, nil, "", 5))
	assert.Empty(t, Rank([]float32{1}, candidates, "A", 5))
}

func TestRankScored_ReturnsScores(t *testing.T) {
	scored := RankScored([]float32{1, 0}, []Candidate{
		{ID: "x", Embedding: []float32{0, 1}},
		{ID: "y", Embedding: []float32{1, 0}},
	}, "", 1)

	require.Len(t, scored, 1)
	assert.Equal(t, "y", scored[0].ID)
	assert.InDelta(t, 1.0, scored[0].Score, 1e-9)
}

// vec is a non-empty, finite vector generator for property tests.
type vec []float32

func (vec) Generate(r *rand.Rand, size int) reflect.Value {
	n := 1 + r.Intn(8)
	v := make(vec, n)
	for i := range v {
		v[i] = float32(r.NormFloat64())
	}
	return reflect.ValueOf(v)
}

func nonZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return true
		}
	}
	return false
}

func TestCosineSimilarity_Properties(t *testing.T) {
	selfIsOne := func(a vec) bool {
		if !nonZero(a) {
			return true
		}
		return math.Abs(CosineSimilarity(a, a)-1) < 1e-6
	}
	require.NoError(t, quick.Check(selfIsOne, nil))

	symmetric := func(a, b vec) bool {
		if len(a) != len(b) {
			b = b[:0]
			for range a {
				b = append(b, 0.5)
			}
		}
		return CosineSimilarity(a, b) == CosineSimilarity(b, a)
	}
	require.NoError(t, quick.Check(symmetric, nil))

	bounded := func(a, b vec) bool {
		s := CosineSimilarity(a, b)
		return s >= -1-1e-9 && s <= 1+1e-9
	}
	require.NoError(t, quick.Check(bounded, nil))
}

func TestRank_Properties(t *testing.T) {
	property := func(query vec, raw []vec, topN uint8, excludeIdx uint8) bool {
		candidates := make([]Candidate, len(raw))
		for i, e := range raw {
			candidates[i] = Candidate{ID: string(rune('a' + i%26)) + string(rune('0'+i/26)), Embedding: e}
		}
		excludeID := ""
		if len(candidates) > 0 {
			excludeID = candidates[int(excludeIdx)%len(candidates)].ID
		}
		n := int(topN % 10)

		scored := RankScored(query, candidates, excludeID, n)

		eligible := 0
		for _, c := range candidates {
			if c.ID != excludeID && len(c.Embedding) == len(query) {
				eligible++
			}
		}
		limit := eligible
		if n > 0 && n < limit {
			limit = n
		}
		if len(scored) != limit {
			return false
		}
		for i, s := range scored {
			if s.ID == excludeID {
				return false
			}
			if i > 0 && scored[i-1].Score < s.Score {
				return false
			}
		}
		return true
	}
	require.NoError(t, quick.Check(property, nil))
}
