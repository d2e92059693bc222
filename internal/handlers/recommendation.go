package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/middleware"
	"github.com/karar-hayder/recanthology/internal/services"
	"github.com/karar-hayder/recanthology/internal/validation"
	"github.com/karar-hayder/recanthology/pkg/models"
)

// Recommender is the engine surface the handler needs; tests substitute
// a fake.
type Recommender interface {
	RecommendPublic(ctx context.Context, kind models.ItemKind, input map[string]float64) ([]models.ScoredItem, error)
	RecommendPrivate(ctx context.Context, userID uuid.UUID, kind models.ItemKind, opts services.PrivateOptions) ([]models.ScoredItem, bool, error)
}

type RecommendationHandler struct {
	engine  Recommender
	schemas *validation.SchemaValidator
	logger  *logrus.Logger
}

func NewRecommendationHandler(engine Recommender, schemas *validation.SchemaValidator, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{engine: engine, schemas: schemas, logger: logger}
}

// Public handles POST /recommend/<kind> with an explicit genre-interest
// map as body.
func (h *RecommendationHandler) Public(kind models.ItemKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Failed to read request body")
			return
		}

		if result := h.schemas.ValidateGenreMap(body); !result.Valid {
			errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST_BODY",
				strings.Join(result.Errors, "; "))
			return
		}

		var input map[string]float64
		if err := json.Unmarshal(body, &input); err != nil {
			errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Body must map genre names to numbers")
			return
		}

		ranked, err := h.engine.RecommendPublic(c.Request.Context(), kind, input)
		if err != nil {
			writeServiceError(c, h.logger, err)
			return
		}

		c.JSON(http.StatusOK, models.NewRecommendationResponse(kind, ranked))
	}
}

// Private handles GET /recommend/<kind> for the authenticated user.
// Query flags: cf=true|false selects hybrid vs pure content, alpha
// overrides the collaborative weight.
func (h *RecommendationHandler) Private(kind models.ItemKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		opts := services.PrivateOptions{
			UseCF: !strings.EqualFold(c.DefaultQuery("cf", "true"), "false"),
		}
		if alphaStr := c.Query("alpha"); alphaStr != "" {
			alpha, err := strconv.ParseFloat(alphaStr, 64)
			if err != nil || alpha < 0 || alpha > 1 {
				errorResponse(c, http.StatusBadRequest, "INVALID_ALPHA", "alpha must be a number in [0, 1]")
				return
			}
			opts.CFWeight = &alpha
		}

		ranked, cacheHit, err := h.engine.RecommendPrivate(c.Request.Context(), userID, kind, opts)
		if err != nil {
			writeServiceError(c, h.logger, err)
			return
		}

		if cacheHit {
			c.Header("X-Cache", "HIT")
		}
		c.JSON(http.StatusOK, models.NewRecommendationResponse(kind, ranked))
	}
}
