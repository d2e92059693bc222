package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/database"
)

// HealthService reports the liveness of the service's dependencies.
type HealthService struct {
	db     *database.Database
	logger *logrus.Logger
}

func NewHealthService(db *database.Database, logger *logrus.Logger) *HealthService {
	return &HealthService{db: db, logger: logger}
}

type HealthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := &HealthStatus{
		Status:     "healthy",
		Components: make(map[string]string),
		Timestamp:  time.Now().UTC(),
	}

	if err := s.db.PG.Ping(ctx); err != nil {
		status.Components["postgres"] = "unhealthy"
		status.Status = "degraded"
	} else {
		status.Components["postgres"] = "healthy"
	}

	if err := s.db.Redis.Hot.Ping(ctx).Err(); err != nil {
		status.Components["redis_hot"] = "unhealthy"
		status.Status = "degraded"
	} else {
		status.Components["redis_hot"] = "healthy"
	}

	if err := s.db.Redis.Warm.Ping(ctx).Err(); err != nil {
		status.Components["redis_warm"] = "unhealthy"
		status.Status = "degraded"
	} else {
		status.Components["redis_warm"] = "healthy"
	}

	return status
}
