package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/pkg/models"
)

type collaborativeRepository interface {
	UserRatings(ctx context.Context, userID uuid.UUID, kind models.ItemKind) ([]models.Rating, error)
	ItemsByIDs(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]*models.Item, error)
}

// CollaborativeScorer recommends items that look like what the user
// already rated highly. Cost is bounded by maxSeeds × maxNeighbors
// similarity lookups per request, which also keeps low-confidence
// long-tail similarities out of the aggregation.
type CollaborativeScorer struct {
	repo          collaborativeRepository
	similarities  *SimilarityStore
	minSeedRating int
	maxSeeds      int
	maxNeighbors  int
	logger        *logrus.Logger
}

func NewCollaborativeScorer(repo collaborativeRepository, similarities *SimilarityStore, minSeedRating, maxSeeds, maxNeighbors int, logger *logrus.Logger) *CollaborativeScorer {
	return &CollaborativeScorer{
		repo:          repo,
		similarities:  similarities,
		minSeedRating: minSeedRating,
		maxSeeds:      maxSeeds,
		maxNeighbors:  maxNeighbors,
		logger:        logger,
	}
}

// Recommend returns up to topN (score, item) pairs descending, scores on
// the 0-100 scale. Items in alreadyRated never appear.
func (s *CollaborativeScorer) Recommend(ctx context.Context, userID uuid.UUID, kind models.ItemKind, topN int, alreadyRated map[uuid.UUID]bool) ([]models.ScoredItem, error) {
	ratings, err := s.repo.UserRatings(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("collaborative scorer: %w", err)
	}

	var seeds []models.Rating
	for _, r := range ratings {
		if r.Value >= s.minSeedRating {
			seeds = append(seeds, r)
		}
	}
	if len(seeds) == 0 {
		return nil, nil
	}

	sort.Slice(seeds, func(i, j int) bool {
		if seeds[i].Value != seeds[j].Value {
			return seeds[i].Value > seeds[j].Value
		}
		return lessUUID(seeds[i].ItemID, seeds[j].ItemID)
	})
	if len(seeds) > s.maxSeeds {
		seeds = seeds[:s.maxSeeds]
	}

	scores := make(map[uuid.UUID]float64)
	weights := make(map[uuid.UUID]float64)
	for _, seed := range seeds {
		similar, err := s.similarities.Similarities(ctx, kind, seed.ItemID)
		if err != nil {
			return nil, fmt.Errorf("collaborative scorer: %w", err)
		}
		if len(similar) > s.maxNeighbors {
			similar = similar[:s.maxNeighbors]
		}
		for _, neighbor := range similar {
			scores[neighbor.ItemID] += neighbor.Score * float64(seed.Value)
			weights[neighbor.ItemID] += neighbor.Score
		}
	}

	type rankedItem struct {
		id  uuid.UUID
		avg float64
	}
	var ranked []rankedItem
	for itemID, total := range scores {
		if alreadyRated[itemID] {
			continue
		}
		weight := weights[itemID]
		if weight <= 0 {
			continue
		}
		ranked = append(ranked, rankedItem{id: itemID, avg: total / weight})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].avg != ranked[j].avg {
			return ranked[i].avg > ranked[j].avg
		}
		return lessUUID(ranked[i].id, ranked[j].id)
	})
	if topN >= 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}

	ids := make([]uuid.UUID, len(ranked))
	for i, r := range ranked {
		ids[i] = r.id
	}
	items, err := s.repo.ItemsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("collaborative scorer: %w", err)
	}

	results := make([]models.ScoredItem, 0, len(ranked))
	for _, r := range ranked {
		item, ok := items[r.id]
		if !ok {
			continue
		}
		// Average neighbor rating lands on 1..10; stretch to 0..100.
		results = append(results, models.ScoredItem{
			Score: Clamp(r.avg*10, 0, 100),
			Item:  item,
		})
	}
	return results, nil
}
