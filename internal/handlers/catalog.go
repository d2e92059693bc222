package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/middleware"
	"github.com/karar-hayder/recanthology/internal/repository"
	"github.com/karar-hayder/recanthology/internal/services"
	"github.com/karar-hayder/recanthology/pkg/models"
)

type CatalogHandler struct {
	catalog  *services.CatalogService
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewCatalogHandler(catalog *services.CatalogService, validate *validator.Validate, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, validate: validate, logger: logger}
}

// Genres handles GET /genres/<kind>.
func (h *CatalogHandler) Genres(kind models.ItemKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		genres, err := h.catalog.Genres(c.Request.Context(), kind)
		if err != nil {
			writeServiceError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": genres})
	}
}

// CreateGenre handles the admin POST /genres/<kind>.
func (h *CatalogHandler) CreateGenre(kind models.ItemKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.GenreCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid genre format")
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			errorResponse(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
			return
		}

		genre, err := h.catalog.CreateGenre(c.Request.Context(), kind, req.Name)
		if err != nil {
			writeServiceError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": genre})
	}
}

// CreateItem handles the admin POST /items.
func (h *CatalogHandler) CreateItem(c *gin.Context) {
	var req models.ItemCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid item format")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	item, err := h.catalog.CreateItem(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": item})
}

// Item handles GET /items/:id.
func (h *CatalogHandler) Item(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_ITEM_ID", "Invalid item ID format")
		return
	}

	item, err := h.catalog.Item(c.Request.Context(), itemID)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

// Filter handles GET /<kind>s with optional query filters. The rated
// flag only applies to authenticated callers.
func (h *CatalogHandler) Filter(kind models.ItemKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := repository.ItemFilter{
			Title:     c.Query("title"),
			Author:    c.Query("author"),
			Genre:     c.Query("genre"),
			MediaType: c.Query("media_type"),
		}
		if likedStr := c.Query("likedPercent"); likedStr != "" {
			liked, err := strconv.Atoi(likedStr)
			if err != nil {
				errorResponse(c, http.StatusBadRequest, "INVALID_INPUT", "likedPercent must be an integer")
				return
			}
			filter.MinLikedPercent = liked
		}

		var userID *uuid.UUID
		var rated *bool
		if ratedStr := c.Query("rated"); ratedStr != "" {
			if id, ok := middleware.UserID(c); ok {
				ratedValue := strings.EqualFold(ratedStr, "true")
				userID = &id
				rated = &ratedValue
			}
		}

		items, err := h.catalog.Filter(c.Request.Context(), kind, filter, userID, rated)
		if err != nil {
			writeServiceError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": items})
	}
}

// Popular handles the anonymous GET /<kind>s/popular listing.
func (h *CatalogHandler) Popular(kind models.ItemKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if limitStr := c.Query("limit"); limitStr != "" {
			if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
				limit = parsed
			}
		}

		items, err := h.catalog.Popular(c.Request.Context(), kind, limit)
		if err != nil {
			writeServiceError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": items})
	}
}
