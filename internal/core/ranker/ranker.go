// Package ranker scores stored knowledge chunks against a query embedding.
package ranker

import (
	"math"
	"sort"

	"chatbot-engine/internal/models"
)

const DefaultTopK = 3

// CosineSimilarity returns dot(a,b)/(|a||b|). It is 0 when either vector is
// empty, the lengths differ, or either magnitude is zero.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// clamp float error so self-similarity never exceeds 1
	return math.Max(-1, math.Min(1, sim))
}

// Rank returns at most topK chunks ordered by descending similarity to query.
// Ties keep their original chunk order. Chunks without an embedding are skipped.
func Rank(query []float64, chunks []models.KnowledgeChunk, topK int) []models.RankedContext {
	if topK <= 0 {
		return []models.RankedContext{}
	}

	scored := make([]models.RankedContext, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		source := c.Filename
		if source == "" {
			source = c.SourceID
		}
		scored = append(scored, models.RankedContext{
			Text:       c.Text,
			Similarity: CosineSimilarity(query, c.Embedding),
			Source:     source,
			Metadata:   map[string]interface{}{"chunkIndex": c.ChunkIndex, "documentId": c.SourceID},
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

// Texts projects ranked contexts onto their text.
func Texts(ranked []models.RankedContext) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Text
	}
	return out
}
