package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/config"
	"github.com/karar-hayder/recanthology/internal/database"
	"github.com/karar-hayder/recanthology/internal/handlers"
	"github.com/karar-hayder/recanthology/internal/messaging"
	"github.com/karar-hayder/recanthology/internal/middleware"
	"github.com/karar-hayder/recanthology/internal/services"
	"github.com/karar-hayder/recanthology/internal/validation"
	"github.com/karar-hayder/recanthology/pkg/models"
)

type App struct {
	config   *config.Config
	logger   *logrus.Logger
	db       *database.Database
	bus      *messaging.RatingEventBus
	services *services.Services
	handlers *handlers.Handlers
	router   *gin.Engine
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	app.bus = messaging.NewRatingEventBus(cfg, app.logger)

	svc, err := services.New(cfg, app.logger, db, app.bus)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = svc

	schemas, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize validation: %w", err)
	}
	app.handlers = handlers.New(app.logger, svc, schemas)

	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if err := a.bus.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing rating event bus")
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))

	router.GET("/health", a.handlers.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	rateLimit := middleware.RateLimit(a.services.RateLimit, a.config, a.logger)

	// Public surface: anonymous rate limits, optional identity on the
	// listing endpoints so the rated/unrated filter can apply.
	public := api.Group("")
	public.Use(rateLimit)
	{
		public.POST("/auth/register", a.handlers.Auth.Register)
		public.POST("/auth/login", a.handlers.Auth.Login)

		public.GET("/genres/books", a.handlers.Catalog.Genres(models.ItemKindBook))
		public.GET("/genres/media", a.handlers.Catalog.Genres(models.ItemKindMedia))
		public.GET("/items/:id", a.handlers.Catalog.Item)
		public.GET("/books", middleware.OptionalAuth(a.services.Auth), a.handlers.Catalog.Filter(models.ItemKindBook))
		public.GET("/media", middleware.OptionalAuth(a.services.Auth), a.handlers.Catalog.Filter(models.ItemKindMedia))
		public.GET("/books/popular", a.handlers.Catalog.Popular(models.ItemKindBook))
		public.GET("/media/popular", a.handlers.Catalog.Popular(models.ItemKindMedia))

		// Public recommendations: explicit genre-interest map as body
		public.POST("/recommend/books", a.handlers.Recommendation.Public(models.ItemKindBook))
		public.POST("/recommend/media", a.handlers.Recommendation.Public(models.ItemKindMedia))
	}

	// Private surface: auth resolves the caller before the limiter picks
	// its per-user allowance.
	private := api.Group("")
	private.Use(middleware.Auth(a.services.Auth, a.logger), rateLimit)
	{
		private.GET("/recommend/books", a.handlers.Recommendation.Private(models.ItemKindBook))
		private.GET("/recommend/media", a.handlers.Recommendation.Private(models.ItemKindMedia))
		private.POST("/rate", a.handlers.Rating.Rate)
		private.GET("/preferences", a.handlers.Preferences.Get)
	}

	// Admin catalog path
	admin := api.Group("/admin")
	admin.Use(middleware.Auth(a.services.Auth, a.logger), middleware.RequireAdmin(), rateLimit)
	{
		admin.POST("/genres/books", a.handlers.Catalog.CreateGenre(models.ItemKindBook))
		admin.POST("/genres/media", a.handlers.Catalog.CreateGenre(models.ItemKindMedia))
		admin.POST("/items", a.handlers.Catalog.CreateItem)
	}

	a.router = router
}
