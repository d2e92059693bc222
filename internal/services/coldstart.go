package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/pkg/models"
)

// Media start years are normalized onto 0-100 over this window.
const (
	recencyMinYear = 1970
	recencyMaxYear = 2026
)

type coldStartRepository interface {
	PopularItems(ctx context.Context, kind models.ItemKind, genreIDs []int64, limit int) ([]*models.Item, error)
	ItemsWithRatingCountBelow(ctx context.Context, kind models.ItemKind, threshold, limit int) ([]*models.Item, error)
}

// ColdStart covers the two ends of sparse history: users without enough
// signal get genre-filtered popularity, and barely-rated items get a
// genre-affinity bonus so established items cannot bury them forever.
type ColdStart struct {
	repo        coldStartRepository
	minRatings  int
	boostFactor float64
	maxBoosted  int
	logger      *logrus.Logger
}

func NewColdStart(repo coldStartRepository, minRatings int, boostFactor float64, maxBoosted int, logger *logrus.Logger) *ColdStart {
	return &ColdStart{
		repo:        repo,
		minRatings:  minRatings,
		boostFactor: boostFactor,
		maxBoosted:  maxBoosted,
		logger:      logger,
	}
}

// popularityScore maps an item's popularity field onto 0-100: books use
// likedPercent verbatim, media rescale startyear over the recency window.
func popularityScore(item *models.Item) float64 {
	if item.Kind == models.ItemKindBook {
		return float64(item.LikedPercent)
	}
	score := float64(item.StartYear-recencyMinYear) / float64(recencyMaxYear-recencyMinYear) * 100
	return roundTo(Clamp(score, 0, 100), 2)
}

// PopularByGenre returns the most popular items intersecting the user's
// preferred genres, or global popularity when no preferences exist.
func (s *ColdStart) PopularByGenre(ctx context.Context, kind models.ItemKind, genrePrefs map[int64]float64, limit int) ([]models.ScoredItem, error) {
	genreIDs := make([]int64, 0, len(genrePrefs))
	for id := range genrePrefs {
		genreIDs = append(genreIDs, id)
	}

	items, err := s.repo.PopularItems(ctx, kind, genreIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("popular by genre: %w", err)
	}

	results := make([]models.ScoredItem, 0, len(items))
	for _, item := range items {
		results = append(results, models.ScoredItem{Score: popularityScore(item), Item: item})
	}
	sortScored(results)
	return results, nil
}

// BoostNewItems injects under-rated items whose genres overlap the
// user's preferences, with a bonus proportional to that overlap, and
// re-sorts the combined list.
func (s *ColdStart) BoostNewItems(ctx context.Context, kind models.ItemKind, recommendations []models.ScoredItem, genrePrefs map[int64]float64) ([]models.ScoredItem, error) {
	if len(genrePrefs) == 0 {
		return recommendations, nil
	}

	existing := make(map[uuid.UUID]bool, len(recommendations))
	for _, rec := range recommendations {
		existing[rec.Item.ID] = true
	}

	lowRated, err := s.repo.ItemsWithRatingCountBelow(ctx, kind, s.minRatings, s.maxBoosted*3)
	if err != nil {
		return nil, fmt.Errorf("boost new items: %w", err)
	}

	boosted := 0
	combined := recommendations
	for _, item := range lowRated {
		if boosted >= s.maxBoosted {
			break
		}
		if existing[item.ID] {
			continue
		}
		overlap := 0
		for _, g := range item.Genres {
			if _, ok := genrePrefs[g.ID]; ok {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		genreCount := len(item.Genres)
		if genreCount < 1 {
			genreCount = 1
		}
		bonus := roundTo(s.boostFactor*float64(overlap)/float64(genreCount), 2)
		combined = append(combined, models.ScoredItem{Score: bonus, Item: item})
		existing[item.ID] = true
		boosted++
	}

	sortScored(combined)
	return combined, nil
}
