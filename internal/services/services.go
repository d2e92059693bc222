package services

import (
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/cache"
	"github.com/karar-hayder/recanthology/internal/config"
	"github.com/karar-hayder/recanthology/internal/database"
	"github.com/karar-hayder/recanthology/internal/messaging"
	"github.com/karar-hayder/recanthology/internal/repository"
)

type Services struct {
	Auth          *AuthService
	Health        *HealthService
	RateLimit     *RateLimitService
	Catalog       *CatalogService
	Preferences   *PreferenceService
	Ratings       *RatingService
	Similarities  *SimilarityStore
	Content       *ContentScorer
	Collaborative *CollaborativeScorer
	ColdStart     *ColdStart
	Signals       *SignalLayer
	Engine        *RecommendationEngine
	Evaluator     *Evaluator
	Metrics       *EngineMetrics
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database, bus *messaging.RatingEventBus) (*Services, error) {
	repo := repository.NewPostgres(db.PG, logger)
	warmCache := cache.NewRedisStore(db.Redis.Warm)

	authService := NewAuthService(repo, cfg, logger, db.Redis.Hot)
	healthService := NewHealthService(db, logger)
	rateLimitService := NewRateLimitService(cfg, logger, db.Redis.Hot)
	catalogService := NewCatalogService(repo, warmCache, cfg.Engine.Caching.CatalogTTL, logger)

	preferenceService := NewPreferenceService(repo, warmCache, logger)
	similarityStore := NewSimilarityStore(repo, warmCache,
		cfg.Engine.Caching.SimilarityTTL, cfg.Engine.Collaborative.Shrinkage, logger)
	contentScorer := NewContentScorer(repo, logger)
	collaborativeScorer := NewCollaborativeScorer(repo, similarityStore,
		cfg.Engine.Collaborative.MinSeedRating, cfg.Engine.Collaborative.MaxSeeds,
		cfg.Engine.Collaborative.MaxNeighbors, logger)
	coldStart := NewColdStart(repo, cfg.Engine.ColdStart.MinRatings,
		cfg.Engine.ColdStart.BoostFactor, cfg.Engine.ColdStart.MaxBoosted, logger)
	signalLayer := NewSignalLayer(repo, cfg.Engine.Signals, logger)

	metrics := NewEngineMetrics()
	engine := NewRecommendationEngine(repo, contentScorer, collaborativeScorer,
		coldStart, signalLayer, warmCache, cfg.Engine, metrics, logger)

	ratingService := NewRatingService(repo, preferenceService, similarityStore, bus, logger)
	evaluator := NewEvaluator(repo, contentScorer, collaborativeScorer, logger)

	return &Services{
		Auth:          authService,
		Health:        healthService,
		RateLimit:     rateLimitService,
		Catalog:       catalogService,
		Preferences:   preferenceService,
		Ratings:       ratingService,
		Similarities:  similarityStore,
		Content:       contentScorer,
		Collaborative: collaborativeScorer,
		ColdStart:     coldStart,
		Signals:       signalLayer,
		Engine:        engine,
		Evaluator:     evaluator,
		Metrics:       metrics,
	}, nil
}
