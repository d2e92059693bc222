package models

import (
	"strconv"

	"github.com/google/uuid"
)

// ScoredItem pairs an item with its relativity score on the 0-100 scale.
type ScoredItem struct {
	Score float64 `json:"relativity"`
	Item  *Item   `json:"item"`
}

// SimilarItem is one row of an item's similarity list. Score carries the
// shrunk cosine similarity in (0, 1].
type SimilarItem struct {
	ItemID uuid.UUID `json:"item_id"`
	Score  float64   `json:"score"`
}

// RecommendationEntry is one string-indexed entry of the API response.
// Exactly one of Book or Media is set, matching the request's taxonomy.
type RecommendationEntry struct {
	Relativity *float64 `json:"relativity"`
	Book       *Item    `json:"book,omitempty"`
	Media      *Item    `json:"media,omitempty"`
}

// RecommendationResponse is the wire shape of both public and private
// recommendation endpoints: {"length": N, "data": {"0": {...}, ...}}.
type RecommendationResponse struct {
	Length int                            `json:"length"`
	Data   map[string]RecommendationEntry `json:"data"`
}

// NewRecommendationResponse builds the string-indexed response map from a
// ranked list, preserving order through the numeric keys "0".."N-1".
func NewRecommendationResponse(kind ItemKind, ranked []ScoredItem) RecommendationResponse {
	data := make(map[string]RecommendationEntry, len(ranked))
	for idx, rec := range ranked {
		score := rec.Score
		entry := RecommendationEntry{Relativity: &score}
		if kind == ItemKindBook {
			entry.Book = rec.Item
		} else {
			entry.Media = rec.Item
		}
		data[strconv.Itoa(idx)] = entry
	}
	return RecommendationResponse{Length: len(ranked), Data: data}
}

// PreferencesResponse returns both taxonomies ordered descending by
// preference.
type PreferencesResponse struct {
	Books []GenrePreference `json:"books"`
	Media []GenrePreference `json:"media"`
}
