package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/services"
	"github.com/karar-hayder/recanthology/pkg/models"
)

type AuthHandler struct {
	auth     *services.AuthService
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewAuthHandler(auth *services.AuthService, validate *validator.Validate, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, validate: validate, logger: logger}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid registration format")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	user, err := h.auth.Register(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": user})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid login format")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		// Collapse credential failures into one message so the endpoint
		// does not leak which half was wrong.
		errorResponse(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}
	c.JSON(http.StatusOK, resp)
}
