package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/middleware"
	"github.com/karar-hayder/recanthology/internal/services"
)

type PreferencesHandler struct {
	preferences *services.PreferenceService
	logger      *logrus.Logger
}

func NewPreferencesHandler(preferences *services.PreferenceService, logger *logrus.Logger) *PreferencesHandler {
	return &PreferencesHandler{preferences: preferences, logger: logger}
}

// Get handles GET /preferences for the authenticated user, returning
// both taxonomies ordered descending by preference.
func (h *PreferencesHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	prefs, err := h.preferences.Get(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": prefs})
}
