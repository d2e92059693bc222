package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/cache"
	"github.com/karar-hayder/recanthology/pkg/models"
)

type similarityRepository interface {
	UsersWhoRated(ctx context.Context, itemID uuid.UUID) ([]uuid.UUID, error)
	RatingsOfUsers(ctx context.Context, userIDs []uuid.UUID, kind models.ItemKind) ([]models.Rating, error)
}

// SimilarityStore computes item-to-item cosine similarities over the
// rating matrix, shrunk by co-rating support n/(n+λ) to damp low-sample
// coincidences. Lists are cached per item with a TTL; a rating write on
// an item invalidates its entry.
type SimilarityStore struct {
	repo      similarityRepository
	cache     cache.Store
	ttl       time.Duration
	shrinkage float64
	logger    *logrus.Logger
}

func NewSimilarityStore(repo similarityRepository, cacheStore cache.Store, ttl time.Duration, shrinkage float64, logger *logrus.Logger) *SimilarityStore {
	return &SimilarityStore{
		repo:      repo,
		cache:     cacheStore,
		ttl:       ttl,
		shrinkage: shrinkage,
		logger:    logger,
	}
}

// Similarities returns (shrunk similarity, other item) pairs descending,
// restricted to items sharing at least one co-rating user with itemID.
func (s *SimilarityStore) Similarities(ctx context.Context, kind models.ItemKind, itemID uuid.UUID) ([]models.SimilarItem, error) {
	key := similarityKey(kind, itemID, s.shrinkage)
	if data, err := s.cache.Get(ctx, key); err == nil {
		var cached []models.SimilarItem
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	users, err := s.repo.UsersWhoRated(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("item similarities: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}

	ratings, err := s.repo.RatingsOfUsers(ctx, users, kind)
	if err != nil {
		return nil, fmt.Errorf("item similarities: %w", err)
	}

	// profiles[item][user] = rating; one sparse row per co-rated item.
	profiles := make(map[uuid.UUID]map[uuid.UUID]float64)
	for _, r := range ratings {
		row, ok := profiles[r.ItemID]
		if !ok {
			row = make(map[uuid.UUID]float64)
			profiles[r.ItemID] = row
		}
		row[r.UserID] = float64(r.Value)
	}

	target := profiles[itemID]
	if len(target) == 0 {
		return nil, nil
	}

	var similar []models.SimilarItem
	for otherID, otherProfile := range profiles {
		if otherID == itemID {
			continue
		}
		common := 0
		for user := range otherProfile {
			if _, ok := target[user]; ok {
				common++
			}
		}
		if common == 0 {
			continue
		}
		sim := Cosine(target, otherProfile)
		shrunk := float64(common) / (float64(common) + s.shrinkage) * sim
		if shrunk > 0 {
			similar = append(similar, models.SimilarItem{ItemID: otherID, Score: shrunk})
		}
	}

	sort.Slice(similar, func(i, j int) bool {
		if similar[i].Score != similar[j].Score {
			return similar[i].Score > similar[j].Score
		}
		return lessUUID(similar[i].ItemID, similar[j].ItemID)
	})

	if data, err := json.Marshal(similar); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.WithError(err).Warn("Failed to cache item similarities")
		}
	}

	return similar, nil
}

// Invalidate drops the cached list for an item after one of its ratings
// changes.
func (s *SimilarityStore) Invalidate(ctx context.Context, kind models.ItemKind, itemID uuid.UUID) error {
	return s.cache.Delete(ctx, similarityKey(kind, itemID, s.shrinkage))
}
