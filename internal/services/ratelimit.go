package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/config"
)

// RateLimitService counts requests per caller in fixed redis windows.
// A redis outage fails open: throttling is protection, not correctness.
type RateLimitService struct {
	config      *config.Config
	logger      *logrus.Logger
	redisClient *redis.Client
}

func NewRateLimitService(cfg *config.Config, logger *logrus.Logger, redisClient *redis.Client) *RateLimitService {
	return &RateLimitService{config: cfg, logger: logger, redisClient: redisClient}
}

// Allow returns whether the caller is under its window limit, plus the
// remaining allowance.
func (s *RateLimitService) Allow(ctx context.Context, callerKey string, limit int) (bool, int, error) {
	window := s.config.Auth.RateLimit.Window
	key := fmt.Sprintf("ratelimit:%s:%d", callerKey, time.Now().Unix()/int64(window.Seconds()))

	count, err := s.redisClient.Incr(ctx, key).Result()
	if err != nil {
		s.logger.WithError(err).Warn("Rate limit check failed, allowing request")
		return true, limit, nil
	}
	if count == 1 {
		if err := s.redisClient.Expire(ctx, key, window).Err(); err != nil {
			s.logger.WithError(err).Warn("Failed to set rate limit expiry")
		}
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return int(count) <= limit, remaining, nil
}
