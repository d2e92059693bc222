package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/cache"
	"github.com/karar-hayder/recanthology/internal/config"
	"github.com/karar-hayder/recanthology/pkg/models"
)

type engineRepository interface {
	Genres(ctx context.Context, kind models.ItemKind) ([]models.Genre, error)
	UserPreferences(ctx context.Context, userID uuid.UUID, kind models.ItemKind) ([]models.GenrePreference, error)
	UserRatings(ctx context.Context, userID uuid.UUID, kind models.ItemKind) ([]models.Rating, error)
}

// PrivateOptions carry the per-request knobs of the private entry point.
type PrivateOptions struct {
	// UseCF selects hybrid blending; false gives pure content scoring.
	UseCF bool
	// CFWeight overrides the configured collaborative weight when set.
	CFWeight *float64
}

// RecommendationEngine fuses the content, collaborative, cold-start and
// signal layers into the final ranked list.
type RecommendationEngine struct {
	repo          engineRepository
	content       *ContentScorer
	collaborative *CollaborativeScorer
	coldStart     *ColdStart
	signals       *SignalLayer
	cache         cache.Store
	cfg           config.Engine
	metrics       *EngineMetrics
	logger        *logrus.Logger
}

func NewRecommendationEngine(
	repo engineRepository,
	content *ContentScorer,
	collaborative *CollaborativeScorer,
	coldStart *ColdStart,
	signals *SignalLayer,
	cacheStore cache.Store,
	cfg config.Engine,
	metrics *EngineMetrics,
	logger *logrus.Logger,
) *RecommendationEngine {
	return &RecommendationEngine{
		repo:          repo,
		content:       content,
		collaborative: collaborative,
		coldStart:     coldStart,
		signals:       signals,
		cache:         cacheStore,
		cfg:           cfg,
		metrics:       metrics,
		logger:        logger,
	}
}

// Alpha is the adaptive content weight: 1 for a user with no history,
// sliding down to 1−cfWeight once ratingCount reaches threshold.
func Alpha(ratingCount int, cfWeight float64, threshold int) float64 {
	if threshold <= 0 {
		return 1 - cfWeight
	}
	frac := float64(ratingCount) / float64(threshold)
	if frac > 1 {
		frac = 1
	}
	return 1 - frac*cfWeight
}

// RecommendPublic ranks items for an explicit genre-interest map. Only
// the content scorer runs; there is no user to blend against.
func (e *RecommendationEngine) RecommendPublic(ctx context.Context, kind models.ItemKind, input map[string]float64) ([]models.ScoredItem, error) {
	start := time.Now()
	defer func() { e.metrics.observe(string(kind), "public", time.Since(start).Seconds()) }()

	if len(input) > e.cfg.Content.PublicMaxInputGenres {
		return nil, fmt.Errorf("%w: too many genres (%d), max %d allowed",
			ErrInvalidInput, len(input), e.cfg.Content.PublicMaxInputGenres)
	}

	needed, err := e.ResolveGenres(ctx, kind, input)
	if err != nil {
		return nil, err
	}

	// Public preferences arrive on the 1..10 scale; recentre them on
	// [-5, 5] and stretch so one strong genre separates candidates.
	scoringFn := func(_ int64, pref float64) float64 {
		return Rescale(Clamp(pref, 1, 10), 1, 10, -5, 5) * 20
	}

	recs, err := e.content.Recommend(ctx, kind, needed, ContentParams{
		MaxGenres:        e.cfg.Content.PublicMaxGenres,
		MaxItemsPerGenre: e.cfg.Content.PublicMaxItemsPerGenre,
		ScoringFn:        scoringFn,
		Decimals:         e.cfg.Content.Decimals,
		DefaultPref:      e.cfg.Content.DefaultPref,
	})
	if err != nil {
		return nil, err
	}

	return topK(recs, e.cfg.Fusion.TopN), nil
}

// RecommendPrivate ranks items for a stored user profile. With UseCF the
// content and collaborative lists are blended under the adaptive α, then
// signal bonuses and the new-item boost are applied; without it the
// content list stands alone.
func (e *RecommendationEngine) RecommendPrivate(ctx context.Context, userID uuid.UUID, kind models.ItemKind, opts PrivateOptions) ([]models.ScoredItem, bool, error) {
	start := time.Now()
	mode := "content"
	if opts.UseCF {
		mode = "hybrid"
	}
	defer func() { e.metrics.observe(string(kind), mode, time.Since(start).Seconds()) }()

	// Only the default request shape is cached; cf=false or an alpha
	// override would poison the shared entry.
	cacheable := opts.UseCF && opts.CFWeight == nil
	cacheKey := recommendationKey(kind, userID)
	if cacheable {
		if data, err := e.cache.Get(ctx, cacheKey); err == nil {
			var cached []models.ScoredItem
			if err := json.Unmarshal(data, &cached); err == nil {
				e.metrics.cacheHit(string(kind))
				return cached, true, nil
			}
		}
	}

	prefs, err := e.repo.UserPreferences(ctx, userID, kind)
	if err != nil {
		return nil, false, fmt.Errorf("private recommendation: %w", err)
	}

	ratings, err := e.repo.UserRatings(ctx, userID, kind)
	if err != nil {
		return nil, false, fmt.Errorf("private recommendation: %w", err)
	}
	alreadyRated := make(map[uuid.UUID]bool, len(ratings))
	for _, r := range ratings {
		alreadyRated[r.ItemID] = true
	}

	// No derived preferences yet: global popularity keeps the response
	// non-empty for brand-new users. Genre-less rated items derive no
	// preference, so the rated set can be non-empty even here.
	if len(prefs) == 0 {
		recs, err := e.coldStart.PopularByGenre(ctx, kind, nil, e.cfg.Fusion.TopN)
		if err != nil {
			return nil, false, fmt.Errorf("private recommendation: %w", err)
		}
		return excludeRated(recs, alreadyRated), false, nil
	}

	needed := make(map[int64]float64, len(prefs))
	for _, pref := range prefs {
		needed[pref.GenreID] = pref.Preference
	}

	contentRecs, err := e.content.Recommend(ctx, kind, needed, ContentParams{
		MaxGenres:        e.cfg.Content.MaxGenres,
		MaxItemsPerGenre: e.cfg.Content.MaxItemsPerGenre,
		Decimals:         e.cfg.Content.Decimals,
		DefaultPref:      e.cfg.Content.DefaultPref,
	})
	if err != nil {
		return nil, false, fmt.Errorf("private recommendation: %w", err)
	}

	var final []models.ScoredItem
	if opts.UseCF && e.cfg.Collaborative.Enabled {
		final, err = e.blend(ctx, userID, kind, contentRecs, needed, alreadyRated, opts)
		if err != nil {
			return nil, false, err
		}
	} else {
		final = topK(excludeRated(contentRecs, alreadyRated), e.cfg.Fusion.TopN)
	}

	if cacheable {
		if data, err := json.Marshal(final); err == nil {
			if err := e.cache.Set(ctx, cacheKey, data, e.cfg.Caching.RecommendationsTTL); err != nil {
				e.logger.WithError(err).Warn("Failed to cache recommendation result")
			}
		}
	}

	return final, false, nil
}

// excludeRated drops items the user has already rated from a ranked
// list, preserving order.
func excludeRated(recs []models.ScoredItem, alreadyRated map[uuid.UUID]bool) []models.ScoredItem {
	if len(alreadyRated) == 0 {
		return recs
	}
	filtered := recs[:0:0]
	for _, rec := range recs {
		if !alreadyRated[rec.Item.ID] {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

func (e *RecommendationEngine) blend(ctx context.Context, userID uuid.UUID, kind models.ItemKind, contentRecs []models.ScoredItem, needed map[int64]float64, alreadyRated map[uuid.UUID]bool, opts PrivateOptions) ([]models.ScoredItem, error) {
	cfRecs, err := e.collaborative.Recommend(ctx, userID, kind, e.cfg.Fusion.TopN, alreadyRated)
	if err != nil {
		return nil, fmt.Errorf("hybrid blend: %w", err)
	}

	cfWeight := e.cfg.Fusion.CFWeight
	if opts.CFWeight != nil {
		cfWeight = Clamp(*opts.CFWeight, 0, 1)
	}
	// Ratings are unique per (user, item), so the rated set is the
	// interaction count driving α.
	alpha := Alpha(len(alreadyRated), cfWeight, e.cfg.Fusion.Threshold)

	combined := make(map[uuid.UUID]float64)
	itemsByID := make(map[uuid.UUID]*models.Item)
	for _, rec := range contentRecs {
		if alreadyRated[rec.Item.ID] {
			continue
		}
		combined[rec.Item.ID] += rec.Score * alpha
		itemsByID[rec.Item.ID] = rec.Item
	}
	for _, rec := range cfRecs {
		combined[rec.Item.ID] += rec.Score * (1 - alpha)
		itemsByID[rec.Item.ID] = rec.Item
	}

	blended := make([]models.ScoredItem, 0, len(combined))
	for itemID, score := range combined {
		item := itemsByID[itemID]
		if e.cfg.Signals.Enabled {
			score += e.signals.Bonus(ctx, item, &userID)
		}
		blended = append(blended, models.ScoredItem{
			Score: Clamp(roundTo(score, 2), 0, 100),
			Item:  item,
		})
	}

	boosted, err := e.coldStart.BoostNewItems(ctx, kind, blended, needed)
	if err != nil {
		return nil, fmt.Errorf("hybrid blend: %w", err)
	}

	// Boost injection may resurface an already-rated item; filter before
	// the final cut.
	return topK(excludeRated(boosted, alreadyRated), e.cfg.Fusion.TopN), nil
}
