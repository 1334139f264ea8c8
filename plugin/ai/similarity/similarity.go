// Package similarity ranks notes by cosine similarity of their embeddings.
package similarity

import (
	"math"
	"sort"
)

// Candidate is a note eligible for ranking.
type Candidate struct {
	ID        string
	Embedding []float32
}

// Scored is a ranked candidate with its similarity to the query.
type Scored struct {
	ID    string
	Score float64
}

// CosineSimilarity calculates cosine similarity between two vectors.
// Mismatched lengths, empty vectors and zero-magnitude vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RankScored scores every candidate against query and returns the best topN,
// highest first. Candidates with excludeID or a different dimension are skipped.
// Equal scores keep their input order. topN <= 0 keeps every candidate.
func RankScored(query []float32, candidates []Candidate, excludeID string, topN int) []Scored {
	if len(query) == 0 {
		return nil
	}

	results := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == excludeID || len(c.Embedding) != len(query) {
			continue
		}
		results = append(results, Scored{
			ID:    c.ID,
			Score: CosineSimilarity(query, c.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results
}

// Rank is RankScored without the scores.
func Rank(query []float32, candidates []Candidate, excludeID string, topN int) []string {
	scored := RankScored(query, candidates, excludeID, topN)
	ids := make([]string, len(scored))
	for i, s := range scored {
		ids[i] = s.ID
	}
	return ids
}
