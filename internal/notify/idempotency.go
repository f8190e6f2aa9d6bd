package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kassaflow/ledger/pkg/logger"
	"github.com/kassaflow/ledger/pkg/redis"
)

var (
	ErrAlreadyDelivered   = errors.New("event already delivered")
	ErrLockAcquireFailed  = errors.New("failed to acquire delivery lock")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

type IdempotencyConfig struct {
	LockTTL time.Duration

	DeliveredTTL time.Duration

	MaxRetries int

	RetryKeyPrefix string

	LockKeyPrefix string

	DeliveredKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:            30 * time.Second,
		DeliveredTTL:       24 * time.Hour,
		MaxRetries:         3,
		RetryKeyPrefix:     "retry:",
		LockKeyPrefix:      "lock:",
		DeliveredKeyPrefix: "delivered:",
	}
}

// IdempotencyService guards event delivery: each event id is delivered at
// most once per DeliveredTTL, concurrent consumers are fenced with a
// short-term lock, and retries are capped.
type IdempotencyService struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotencyService(redisAdapter redis.RedisAdapter, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{
		redis:  redisAdapter,
		config: config,
	}
}

type DeliveryContext struct {
	EventID      string
	RetryCount   int
	IsRetry      bool
	lockAcquired bool
	service      *IdempotencyService
}

func (s *IdempotencyService) AcquireDeliveryLock(ctx context.Context, eventID string) (*DeliveryContext, error) {
	// Already delivered within the marker window?
	deliveredKey := s.config.DeliveredKeyPrefix + eventID
	exists, err := s.redis.Exist(deliveredKey)
	if err != nil {
		logger.Warn("Failed to check delivered status", "event_id", eventID, "error", err)
		// Continue even if check fails - better to risk a duplicate webhook
		// than to block delivery entirely
	} else if exists > 0 {
		return nil, ErrAlreadyDelivered
	}

	retryKey := s.config.RetryKeyPrefix + eventID
	retryCountBytes, err := s.redis.Get(retryKey)
	retryCount := 0
	if err == nil && len(retryCountBytes) > 0 {
		fmt.Sscanf(string(retryCountBytes), "%d", &retryCount)
	}

	if retryCount >= s.config.MaxRetries {
		logger.Error("Max retries exceeded for event", "event_id", eventID, "retry_count", retryCount)
		return nil, fmt.Errorf("%w: event_id=%s, retries=%d", ErrMaxRetriesExceeded, eventID, retryCount)
	}

	lockKey := s.config.LockKeyPrefix + eventID
	lockValue := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))

	acquired, err := s.redis.SetNX(lockKey, lockValue, s.config.LockTTL)
	if err != nil {
		logger.Error("Failed to acquire lock", "event_id", eventID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}
	if !acquired {
		logger.Info("Lock already held by another consumer", "event_id", eventID)
		return nil, ErrLockAcquireFailed
	}

	return &DeliveryContext{
		EventID:      eventID,
		RetryCount:   retryCount,
		IsRetry:      retryCount > 0,
		lockAcquired: true,
		service:      s,
	}, nil
}

func (s *IdempotencyService) MarkDelivered(ctx context.Context, dc *DeliveryContext) error {
	deliveredKey := s.config.DeliveredKeyPrefix + dc.EventID
	if err := s.redis.Set(deliveredKey, []byte("1"), s.config.DeliveredTTL); err != nil {
		logger.Error("Failed to mark event as delivered", "event_id", dc.EventID, "error", err)
		return fmt.Errorf("failed to mark as delivered: %w", err)
	}

	s.cleanup(ctx, dc)
	return nil
}

func (s *IdempotencyService) MarkFailure(ctx context.Context, dc *DeliveryContext, reason error) error {
	retryKey := s.config.RetryKeyPrefix + dc.EventID
	newRetryCount := dc.RetryCount + 1
	if err := s.redis.Set(retryKey, []byte(fmt.Sprintf("%d", newRetryCount)), s.config.DeliveredTTL); err != nil {
		logger.Error("Failed to increment retry counter", "event_id", dc.EventID, "error", err)
	}

	lockKey := s.config.LockKeyPrefix + dc.EventID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to remove lock", "event_id", dc.EventID, "error", err)
	}

	logger.Warn("Event delivery failed, will retry",
		"event_id", dc.EventID,
		"retry_count", newRetryCount,
		"max_retries", s.config.MaxRetries,
		"reason", reason)

	return nil
}

func (s *IdempotencyService) ReleaseLock(ctx context.Context, dc *DeliveryContext) error {
	if dc == nil || !dc.lockAcquired {
		return nil
	}

	lockKey := s.config.LockKeyPrefix + dc.EventID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to release lock", "event_id", dc.EventID, "error", err)
		return err
	}

	dc.lockAcquired = false
	return nil
}

func (s *IdempotencyService) cleanup(ctx context.Context, dc *DeliveryContext) {
	lockKey := s.config.LockKeyPrefix + dc.EventID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to cleanup lock", "event_id", dc.EventID, "error", err)
	}

	retryKey := s.config.RetryKeyPrefix + dc.EventID
	if err := s.redis.Del(retryKey); err != nil {
		logger.Warn("Failed to cleanup retry counter", "event_id", dc.EventID, "error", err)
	}

	dc.lockAcquired = false
}

func (s *IdempotencyService) GetRetryCount(ctx context.Context, eventID string) (int, error) {
	retryKey := s.config.RetryKeyPrefix + eventID
	retryCountBytes, err := s.redis.Get(retryKey)
	if err != nil {
		if err == redis.NilError {
			return 0, nil
		}
		return 0, err
	}

	retryCount := 0
	fmt.Sscanf(string(retryCountBytes), "%d", &retryCount)
	return retryCount, nil
}

func (s *IdempotencyService) IsDelivered(ctx context.Context, eventID string) (bool, error) {
	deliveredKey := s.config.DeliveredKeyPrefix + eventID
	exists, err := s.redis.Exist(deliveredKey)
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
