package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

const delayedSetPrefix = "escalation:delayed:"

// MarkDelayedOnce records a complaint in the delayed tracking set.
// Returns true only on first insertion; repeat calls for the same
// complaint return false so the sweep never escalates twice.
func (r *Redis) MarkDelayedOnce(ctx context.Context, complaintID string) (bool, error) {
	if r == nil || r.Client == nil {
		return false, errors.New("redis client not configured")
	}
	return r.Client.SetNX(ctx, delayedSetPrefix+complaintID, "1", 0).Result()
}

// ClearDelayed removes a complaint from the delayed tracking set, used
// when a complaint leaves the overdue path (resolution or transfer).
func (r *Redis) ClearDelayed(ctx context.Context, complaintID string) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Del(ctx, delayedSetPrefix+complaintID).Err()
}
