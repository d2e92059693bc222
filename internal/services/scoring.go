package services

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/karar-hayder/recanthology/pkg/models"
)

// roundTo rounds half away from zero at the given number of decimals.
func roundTo(x float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(x*pow) / pow
}

// Rescale linearly maps x from the source range onto the destination
// range, rounded to 3 decimals. Used to move rating percentages onto the
// [-5, 5] preference scale.
func Rescale(x, srcLo, srcHi, dstLo, dstHi float64) float64 {
	return roundTo((x-srcLo)*(dstHi-dstLo)/(srcHi-srcLo)+dstLo, 3)
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}

// Cosine computes the cosine similarity of two user→rating vectors. The
// result is 0 when either norm is zero or the vectors share no user.
func Cosine(a, b map[uuid.UUID]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var dot float64
	shared := false
	for user, ra := range a {
		if rb, ok := b[user]; ok {
			dot += ra * rb
			shared = true
		}
	}
	if !shared {
		return 0
	}

	var normA, normB float64
	for _, r := range a {
		normA += r * r
	}
	for _, r := range b {
		normB += r * r
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// sortScored orders a ranked list descending by score with ascending
// item id on ties, so equal inputs always produce equal output order.
func sortScored(items []models.ScoredItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return lessUUID(items[i].Item.ID, items[j].Item.ID)
	})
}

func lessUUID(a, b uuid.UUID) bool {
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// topK sorts and truncates a ranked list.
func topK(items []models.ScoredItem, k int) []models.ScoredItem {
	sortScored(items)
	if k >= 0 && len(items) > k {
		items = items[:k]
	}
	return items
}
