package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/cache"
	"github.com/karar-hayder/recanthology/internal/repository"
	"github.com/karar-hayder/recanthology/pkg/models"
)

type catalogRepository interface {
	repository.CatalogReader
	repository.CatalogWriter
	UserRatings(ctx context.Context, userID uuid.UUID, kind models.ItemKind) ([]models.Rating, error)
}

// CatalogService fronts catalog reads with a short-lived cache and owns
// the admin write path. Genres and items are effectively immutable
// between admin writes, so the cached listings only need invalidation on
// creation.
type CatalogService struct {
	repo   catalogRepository
	cache  cache.Store
	ttl    time.Duration
	logger *logrus.Logger
}

func NewCatalogService(repo catalogRepository, cacheStore cache.Store, ttl time.Duration, logger *logrus.Logger) *CatalogService {
	return &CatalogService{repo: repo, cache: cacheStore, ttl: ttl, logger: logger}
}

func (s *CatalogService) Genres(ctx context.Context, kind models.ItemKind) ([]models.Genre, error) {
	key := catalogKey("genres", kind)
	if data, err := s.cache.Get(ctx, key); err == nil {
		var genres []models.Genre
		if err := json.Unmarshal(data, &genres); err == nil {
			return genres, nil
		}
	}

	genres, err := s.repo.Genres(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}

	if data, err := json.Marshal(genres); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.WithError(err).Warn("Failed to cache genre listing")
		}
	}
	return genres, nil
}

func (s *CatalogService) CreateGenre(ctx context.Context, kind models.ItemKind, name string) (*models.Genre, error) {
	genre, err := s.repo.CreateGenre(ctx, kind, name)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Delete(ctx, catalogKey("genres", kind)); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate genre listing cache")
	}
	return genre, nil
}

// CreateItem validates the genre set against the item's taxonomy and
// inserts. Duplicate ids surface as ErrConflict.
func (s *CatalogService) CreateItem(ctx context.Context, req *models.ItemCreateRequest) (*models.Item, error) {
	genres, err := s.repo.Genres(ctx, req.Kind)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	byID := make(map[int64]models.Genre, len(genres))
	for _, g := range genres {
		byID[g.ID] = g
	}

	item := &models.Item{
		ID:           uuid.New(),
		Kind:         req.Kind,
		Title:        req.Title,
		Author:       req.Author,
		ISBN:         req.ISBN,
		Language:     req.Language,
		Pages:        req.Pages,
		LikedPercent: req.LikedPercent,
		MediaType:    req.MediaType,
		StartYear:    req.StartYear,
		Length:       req.Length,
		Over18:       req.Over18,
	}
	for _, genreID := range req.Genres {
		genre, ok := byID[genreID]
		if !ok {
			return nil, fmt.Errorf("%w: genre %d is not a %s genre", ErrInvalidInput, genreID, req.Kind)
		}
		item.Genres = append(item.Genres, genre)
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create item: %w", err)
	}
	return item, nil
}

func (s *CatalogService) Item(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	item, err := s.repo.Item(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
		}
		return nil, err
	}
	return item, nil
}

// Filter lists items matching the filter; when userID is set and rated
// is non-nil, the result is narrowed to items the user has or has not
// rated.
func (s *CatalogService) Filter(ctx context.Context, kind models.ItemKind, filter repository.ItemFilter, userID *uuid.UUID, rated *bool) ([]*models.Item, error) {
	items, err := s.repo.FilterItems(ctx, kind, filter)
	if err != nil {
		return nil, err
	}

	if userID == nil || rated == nil {
		return items, nil
	}

	ratings, err := s.repo.UserRatings(ctx, *userID, kind)
	if err != nil {
		return nil, fmt.Errorf("filter items: %w", err)
	}
	ratedSet := make(map[uuid.UUID]bool, len(ratings))
	for _, r := range ratings {
		ratedSet[r.ItemID] = true
	}

	filtered := items[:0:0]
	for _, item := range items {
		if ratedSet[item.ID] == *rated {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

// Popular serves the most popular items of a kind, the anonymous
// landing listing.
func (s *CatalogService) Popular(ctx context.Context, kind models.ItemKind, limit int) ([]*models.Item, error) {
	return s.repo.PopularItems(ctx, kind, nil, limit)
}
