package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/pkg/models"
)

type contentRepository interface {
	ItemsByGenre(ctx context.Context, genreID int64, kind models.ItemKind, limit int) ([]*models.Item, error)
}

// ContentParams tunes one content-scoring pass. A nil ScoringFn scores a
// genre by the preference value itself.
type ContentParams struct {
	MaxGenres        int
	MaxItemsPerGenre int
	ScoringFn        func(genreID int64, pref float64) float64
	Decimals         int
	DefaultPref      float64
}

// ContentScorer produces genre-affinity candidates: for each of the
// user's strongest genres it gathers the most relevant items and scores
// each candidate by summing the preference contribution of every genre
// the item carries.
type ContentScorer struct {
	repo   contentRepository
	logger *logrus.Logger
}

func NewContentScorer(repo contentRepository, logger *logrus.Logger) *ContentScorer {
	return &ContentScorer{repo: repo, logger: logger}
}

// Recommend returns one (relativity, item) pair per unique candidate.
// The result is unsorted; fusion orders the final list.
func (s *ContentScorer) Recommend(ctx context.Context, kind models.ItemKind, needed map[int64]float64, params ContentParams) ([]models.ScoredItem, error) {
	if len(needed) == 0 {
		return nil, nil
	}

	topGenres := selectTopGenres(needed, params.MaxGenres)

	type candidate struct {
		raw  float64
		item *models.Item
	}
	seen := make(map[uuid.UUID]bool)
	var candidates []candidate
	var maxRaw float64

	for _, genreID := range topGenres {
		items, err := s.repo.ItemsByGenre(ctx, genreID, kind, params.MaxItemsPerGenre)
		if err != nil {
			return nil, fmt.Errorf("content scorer: %w", err)
		}
		for _, item := range items {
			if seen[item.ID] {
				continue
			}
			seen[item.ID] = true

			var raw float64
			for _, g := range item.Genres {
				pref, ok := needed[g.ID]
				if !ok {
					pref = params.DefaultPref
				}
				if params.ScoringFn != nil {
					raw += params.ScoringFn(g.ID, pref)
				} else {
					raw += pref
				}
			}
			if raw < 0 {
				raw = 0
			}
			candidates = append(candidates, candidate{raw: raw, item: item})
			if raw > maxRaw {
				maxRaw = raw
			}
		}
	}

	// All-zero raw scores normalize against 1 so every relativity is 0
	// rather than dividing by zero.
	if maxRaw == 0 {
		maxRaw = 1
	}

	results := make([]models.ScoredItem, 0, len(candidates))
	for _, c := range candidates {
		relativity := Clamp(roundTo(c.raw/maxRaw*100, params.Decimals), 0, 100)
		results = append(results, models.ScoredItem{Score: relativity, Item: c.item})
	}
	return results, nil
}

// selectTopGenres orders genres by descending preference, breaking ties
// on ascending genre id, and keeps the strongest max entries.
func selectTopGenres(needed map[int64]float64, max int) []int64 {
	type genrePref struct {
		id   int64
		pref float64
	}
	ranked := make([]genrePref, 0, len(needed))
	for id, pref := range needed {
		ranked = append(ranked, genrePref{id: id, pref: pref})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].pref != ranked[j].pref {
			return ranked[i].pref > ranked[j].pref
		}
		return ranked[i].id < ranked[j].id
	})
	if max >= 0 && len(ranked) > max {
		ranked = ranked[:max]
	}
	ids := make([]int64, len(ranked))
	for i, g := range ranked {
		ids[i] = g.id
	}
	return ids
}
