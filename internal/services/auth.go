package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/karar-hayder/recanthology/internal/config"
	"github.com/karar-hayder/recanthology/internal/repository"
	"github.com/karar-hayder/recanthology/pkg/models"
)

// AuthService handles registration, login and JWT validation. Sessions
// are mirrored in redis so a token dies with its session.
type AuthService struct {
	users       repository.UserStore
	config      *config.Config
	logger      *logrus.Logger
	redisClient *redis.Client
	jwtSecret   []byte
}

func NewAuthService(users repository.UserStore, cfg *config.Config, logger *logrus.Logger, redisClient *redis.Client) *AuthService {
	return &AuthService{
		users:       users,
		config:      cfg,
		logger:      logger,
		redisClient: redisClient,
		jwtSecret:   []byte(cfg.Auth.JWTSecret),
	}
}

// Register creates a user. A duplicate email surfaces as ErrConflict.
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, fmt.Errorf("register user: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("Registered user")
	return user, nil
}

// Login verifies credentials and issues a session-backed token.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.UserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", ErrInvalidInput)
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrInvalidInput)
	}

	token, expiresAt, err := s.GenerateToken(user.ID, user.IsAdmin)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{Token: token, ExpiresAt: expiresAt, User: *user}, nil
}

func (s *AuthService) GenerateToken(userID uuid.UUID, isAdmin bool) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.Auth.TokenTTL)
	claims := &models.JWTClaims{
		UserID:  userID,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "github.com/karar-hayder/recanthology",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	sessionKey := fmt.Sprintf("session:%s", userID)
	if err := s.redisClient.Set(context.Background(), sessionKey, tokenString, s.config.Auth.TokenTTL).Err(); err != nil {
		// Token issuance survives a redis outage; validation degrades the
		// same way below.
		s.logger.WithError(err).Warn("Failed to store session in Redis")
	}

	return tokenString, expiresAt, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	sessionKey := fmt.Sprintf("session:%s", claims.UserID)
	exists, err := s.redisClient.Exists(context.Background(), sessionKey).Result()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to check session in Redis")
	} else if exists == 0 {
		return nil, fmt.Errorf("session not found or expired")
	}

	return claims, nil
}

func (s *AuthService) RevokeToken(userID uuid.UUID) error {
	sessionKey := fmt.Sprintf("session:%s", userID)
	if err := s.redisClient.Del(context.Background(), sessionKey).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}
