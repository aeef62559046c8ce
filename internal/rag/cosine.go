package rag

import (
	"math"
	"sort"
)

// Cosine returns the cosine similarity of a and b. Vectors of different
// length or with zero magnitude have similarity 0.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// RankByCosine scores every document against query and returns the topK most
// similar, highest first. Ties keep sequence order.
func RankByCosine(query []float32, docs []Document, vectors [][]float32, topK int) []Document {
	if topK <= 0 || len(docs) == 0 {
		return nil
	}
	scored := make([]Document, len(docs))
	for i := range docs {
		scored[i] = docs[i]
		scored[i].Score = Cosine(query, vectors[i])
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score == scored[j].Score {
			return scored[i].Seq < scored[j].Seq
		}
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
