package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/config"
	"github.com/karar-hayder/recanthology/pkg/models"
)

type signalRepository interface {
	UserAuthorStats(ctx context.Context, userID uuid.UUID, author string) (int, float64, error)
	UserTopLanguage(ctx context.Context, userID uuid.UUID) (string, error)
	UserTopMediaType(ctx context.Context, userID uuid.UUID) (string, error)
}

// SignalLayer adds a capped metadata bonus on top of the blended score.
// Each signal yields a value in [0, 1] multiplied by its weight; the sum
// is capped so metadata can nudge but never dominate the ranking. A
// failed affinity lookup contributes 0 rather than failing the request.
type SignalLayer struct {
	repo   signalRepository
	cfg    config.Signals
	logger *logrus.Logger
}

func NewSignalLayer(repo signalRepository, cfg config.Signals, logger *logrus.Logger) *SignalLayer {
	return &SignalLayer{repo: repo, cfg: cfg, logger: logger}
}

func (s *SignalLayer) popularity(item *models.Item) float64 {
	if item.Kind != models.ItemKindBook {
		return 0
	}
	return Clamp(float64(item.LikedPercent)/100, 0, 1)
}

func (s *SignalLayer) recency(item *models.Item) float64 {
	if item.Kind != models.ItemKindMedia || item.StartYear == 0 {
		return 0
	}
	yearRange := float64(recencyMaxYear - recencyMinYear)
	return Clamp(float64(item.StartYear-recencyMinYear)/yearRange, 0, 1)
}

func (s *SignalLayer) authorAffinity(ctx context.Context, item *models.Item, userID uuid.UUID) float64 {
	if item.Kind != models.ItemKindBook || item.Author == "" {
		return 0
	}
	count, avg, err := s.repo.UserAuthorStats(ctx, userID, item.Author)
	if err != nil {
		s.logger.WithError(err).Debug("Author affinity lookup failed")
		return 0
	}
	if count >= 2 && avg >= 7 {
		return 1
	}
	return 0
}

func (s *SignalLayer) languagePreference(ctx context.Context, item *models.Item, userID uuid.UUID) float64 {
	if item.Kind != models.ItemKindBook || item.Language == "" {
		return 0
	}
	top, err := s.repo.UserTopLanguage(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Debug("Language preference lookup failed")
		return 0
	}
	if top != "" && strings.EqualFold(item.Language, top) {
		return 1
	}
	return 0
}

func (s *SignalLayer) mediaTypeMatch(ctx context.Context, item *models.Item, userID uuid.UUID) float64 {
	if item.Kind != models.ItemKindMedia || item.MediaType == "" {
		return 0
	}
	top, err := s.repo.UserTopMediaType(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Debug("Media type lookup failed")
		return 0
	}
	if top != "" && strings.EqualFold(item.MediaType, top) {
		return 1
	}
	return 0
}

// Bonus computes the capped signal total for one item. userID is nil on
// public requests, which disables the per-user affinity signals.
func (s *SignalLayer) Bonus(ctx context.Context, item *models.Item, userID *uuid.UUID) float64 {
	bonus := s.popularity(item) * s.cfg.Popularity
	bonus += s.recency(item) * s.cfg.Recency

	if userID != nil {
		bonus += s.authorAffinity(ctx, item, *userID) * s.cfg.AuthorAffinity
		bonus += s.languagePreference(ctx, item, *userID) * s.cfg.LanguagePreference
		bonus += s.mediaTypeMatch(ctx, item, *userID) * s.cfg.MediaTypeMatch
	}

	if bonus > s.cfg.MaxBonus {
		bonus = s.cfg.MaxBonus
	}
	return bonus
}
