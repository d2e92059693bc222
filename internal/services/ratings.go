package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/repository"
	"github.com/karar-hayder/recanthology/pkg/models"
)

type ratingRepository interface {
	Item(ctx context.Context, itemID uuid.UUID) (*models.Item, error)
	UpsertRating(ctx context.Context, rating models.Rating) error
}

type ratingEventPublisher interface {
	PublishRating(ctx context.Context, event models.RatingEvent) error
}

// RatingService owns the rating write path and its post-write hook:
// after every successful upsert the user's preference vector for the
// item's taxonomy is recomputed, the item's similarity cache entry is
// dropped, and a rating event is streamed out.
type RatingService struct {
	repo         ratingRepository
	preferences  *PreferenceService
	similarities *SimilarityStore
	bus          ratingEventPublisher
	logger       *logrus.Logger
}

func NewRatingService(repo ratingRepository, preferences *PreferenceService, similarities *SimilarityStore, bus ratingEventPublisher, logger *logrus.Logger) *RatingService {
	return &RatingService{
		repo:         repo,
		preferences:  preferences,
		similarities: similarities,
		bus:          bus,
		logger:       logger,
	}
}

// Rate validates and upserts one rating, then runs the post-write hook.
// A second rating for the same (user, item) overwrites the first.
func (s *RatingService) Rate(ctx context.Context, userID, itemID uuid.UUID, value int) (*models.Rating, error) {
	if value < 1 || value > 10 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 10, got %d", ErrInvalidInput, value)
	}

	item, err := s.repo.Item(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
		}
		return nil, fmt.Errorf("rate item: %w", err)
	}

	rating := models.Rating{
		UserID: userID,
		ItemID: itemID,
		Kind:   item.Kind,
		Value:  value,
	}
	if err := s.repo.UpsertRating(ctx, rating); err != nil {
		return nil, fmt.Errorf("rate item: %w", err)
	}

	// Post-write hook: keep the preference vector consistent with the
	// rating set before the write returns.
	if err := s.preferences.Derive(ctx, userID, item.Kind); err != nil {
		return nil, fmt.Errorf("rate item: %w", err)
	}

	if err := s.similarities.Invalidate(ctx, item.Kind, itemID); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate item similarity cache")
	}

	if s.bus != nil {
		event := models.RatingEvent{
			UserID:    userID,
			ItemID:    itemID,
			Kind:      item.Kind,
			Value:     value,
			Timestamp: time.Now().UTC(),
		}
		if err := s.bus.PublishRating(ctx, event); err != nil {
			s.logger.WithError(err).Warn("Failed to publish rating event")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"item_id": itemID,
		"kind":    item.Kind,
		"value":   value,
	}).Info("Recorded rating")

	return &rating, nil
}
