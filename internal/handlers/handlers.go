package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/services"
	"github.com/karar-hayder/recanthology/internal/validation"
)

type Handlers struct {
	Auth           *AuthHandler
	Catalog        *CatalogHandler
	Rating         *RatingHandler
	Recommendation *RecommendationHandler
	Preferences    *PreferencesHandler
	Health         *HealthHandler
}

func New(logger *logrus.Logger, svc *services.Services, schemas *validation.SchemaValidator) *Handlers {
	validate := validator.New()
	return &Handlers{
		Auth:           NewAuthHandler(svc.Auth, validate, logger),
		Catalog:        NewCatalogHandler(svc.Catalog, validate, logger),
		Rating:         NewRatingHandler(svc.Ratings, validate, logger),
		Recommendation: NewRecommendationHandler(svc.Engine, schemas, logger),
		Preferences:    NewPreferencesHandler(svc.Preferences, logger),
		Health:         NewHealthHandler(svc.Health, logger),
	}
}

func errorResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// writeServiceError maps the engine's error taxonomy onto HTTP statuses.
func writeServiceError(c *gin.Context, logger *logrus.Logger, err error) {
	var resolutionErr *services.GenreResolutionError
	switch {
	case errors.As(err, &resolutionErr):
		detail := gin.H{}
		if len(resolutionErr.NotFound) > 0 {
			detail["not_found"] = resolutionErr.NotFound
		}
		if len(resolutionErr.Ambiguous) > 0 {
			detail["ambiguous"] = resolutionErr.Ambiguous
		}
		c.JSON(http.StatusNotAcceptable, gin.H{
			"error":            "Some genres could not be resolved.",
			"detail":           detail,
			"available_genres": resolutionErr.AvailableGenres,
		})
	case errors.Is(err, services.ErrInvalidInput):
		errorResponse(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, services.ErrNotFound):
		errorResponse(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, services.ErrConflict):
		errorResponse(c, http.StatusConflict, "CONFLICT", err.Error())
	default:
		logger.WithError(err).Error("Request failed")
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
