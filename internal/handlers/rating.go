package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/middleware"
	"github.com/karar-hayder/recanthology/internal/services"
	"github.com/karar-hayder/recanthology/pkg/models"
)

type RatingHandler struct {
	ratings  *services.RatingService
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewRatingHandler(ratings *services.RatingService, validate *validator.Validate, logger *logrus.Logger) *RatingHandler {
	return &RatingHandler{ratings: ratings, validate: validate, logger: logger}
}

// Rate handles POST /rate for the authenticated user.
func (h *RatingHandler) Rate(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req models.RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid rating format")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	rating, err := h.ratings.Rate(c.Request.Context(), userID, req.ItemID, req.Value)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rating})
}
