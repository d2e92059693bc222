package services

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/cache"
	"github.com/karar-hayder/recanthology/internal/repository"
	"github.com/karar-hayder/recanthology/pkg/models"
)

type preferenceRepository interface {
	UserRatings(ctx context.Context, userID uuid.UUID, kind models.ItemKind) ([]models.Rating, error)
	ItemsByIDs(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]*models.Item, error)
	UserPreferences(ctx context.Context, userID uuid.UUID, kind models.ItemKind) ([]models.GenrePreference, error)
	WritePreferencesBulk(ctx context.Context, userID uuid.UUID, kind models.ItemKind, updates, inserts []repository.PreferenceUpdate) error
}

// PreferenceService derives per-genre preference vectors from a user's
// ratings. Derivation is idempotent: rerunning it with an unchanged
// rating set issues no writes.
type PreferenceService struct {
	repo   preferenceRepository
	cache  cache.Store
	logger *logrus.Logger
}

func NewPreferenceService(repo preferenceRepository, cacheStore cache.Store, logger *logrus.Logger) *PreferenceService {
	return &PreferenceService{repo: repo, cache: cacheStore, logger: logger}
}

// Get returns both taxonomies' preference vectors, each sorted
// descending by preference.
func (s *PreferenceService) Get(ctx context.Context, userID uuid.UUID) (*models.PreferencesResponse, error) {
	books, err := s.repo.UserPreferences(ctx, userID, models.ItemKindBook)
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	media, err := s.repo.UserPreferences(ctx, userID, models.ItemKindMedia)
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	return &models.PreferencesResponse{Books: books, Media: media}, nil
}

// Derive recomputes the user's preference vector for one taxonomy and
// persists the diff against the stored rows in a single transaction.
func (s *PreferenceService) Derive(ctx context.Context, userID uuid.UUID, kind models.ItemKind) error {
	ratings, err := s.repo.UserRatings(ctx, userID, kind)
	if err != nil {
		return fmt.Errorf("derive preferences: %w", err)
	}
	if len(ratings) == 0 {
		return nil
	}

	itemIDs := make([]uuid.UUID, 0, len(ratings))
	for _, r := range ratings {
		itemIDs = append(itemIDs, r.ItemID)
	}
	items, err := s.repo.ItemsByIDs(ctx, itemIDs)
	if err != nil {
		return fmt.Errorf("derive preferences: %w", err)
	}

	type accum struct {
		weightedSum float64
		count       int
	}
	perGenre := make(map[int64]*accum)
	for _, r := range ratings {
		item, ok := items[r.ItemID]
		if !ok {
			continue
		}
		for _, g := range item.Genres {
			acc, ok := perGenre[g.ID]
			if !ok {
				acc = &accum{}
				perGenre[g.ID] = acc
			}
			acc.weightedSum += float64(r.Value)
			acc.count++
		}
	}

	existing, err := s.repo.UserPreferences(ctx, userID, kind)
	if err != nil {
		return fmt.Errorf("derive preferences: %w", err)
	}
	stored := make(map[int64]float64, len(existing))
	for _, pref := range existing {
		stored[pref.GenreID] = pref.Preference
	}

	var updates, inserts []repository.PreferenceUpdate
	for genreID, acc := range perGenre {
		if acc.count == 0 {
			continue
		}
		pct := math.Min(acc.weightedSum/float64(acc.count)*10, 100)
		pref := Rescale(pct, 0, 100, -5, 5)

		current, exists := stored[genreID]
		switch {
		case !exists:
			inserts = append(inserts, repository.PreferenceUpdate{GenreID: genreID, Preference: pref})
		case math.Abs(current-pref) > 1e-9:
			updates = append(updates, repository.PreferenceUpdate{GenreID: genreID, Preference: pref})
		}
	}

	if len(updates) > 0 || len(inserts) > 0 {
		if err := s.repo.WritePreferencesBulk(ctx, userID, kind, updates, inserts); err != nil {
			return fmt.Errorf("derive preferences: %w", err)
		}
	}

	// The cached recommendation result is stale once preferences move.
	if err := s.cache.Delete(ctx, recommendationKey(kind, userID), preferencesKey(kind, userID)); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate recommendation cache")
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"kind":    kind,
		"updates": len(updates),
		"inserts": len(inserts),
	}).Debug("Derived genre preferences")

	return nil
}
