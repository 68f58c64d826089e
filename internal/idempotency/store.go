package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ledgerpay/transfer/internal/models"
	"github.com/ledgerpay/transfer/internal/observability"
	"github.com/ledgerpay/transfer/internal/repository"
)

const cacheKeyPrefix = "transfer_idempotency"

// DefaultTTL is how long cached transfer results live.
const DefaultTTL = 24 * time.Hour

// TransactionFinder is the durable lookup behind the cache; satisfied by
// *repository.TransactionRepo.
type TransactionFinder interface {
	FindCompletedByKey(ctx context.Context, q repository.DB, key string) (*models.TransferResult, error)
}

// Store maps an idempotency key to a previously produced transfer result.
// Redis is checked first; on a miss the durable record is consulted and
// backfilled into the cache. The cache is a performance optimization — the
// unique constraint on transactions.idempotency_key is the source of truth.
type Store struct {
	redis  redis.Cmdable
	db     repository.DB
	finder TransactionFinder
	ttl    time.Duration
}

func NewStore(redisClient redis.Cmdable, db repository.DB, finder TransactionFinder, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{redis: redisClient, db: db, finder: finder, ttl: ttl}
}

// Get returns the cached result for the key, or nil when no completed
// transfer exists for it.
func (s *Store) Get(ctx context.Context, key string) (*models.TransferResult, error) {
	if s.redis != nil {
		val, err := s.redis.Get(ctx, cacheKey(key)).Result()
		if err == nil {
			var result models.TransferResult
			if json.Unmarshal([]byte(val), &result) == nil {
				observability.IncrementIdempotencyEvent("cache_hit")
				return &result, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			zap.L().Warn("redis idempotency lookup failed", zap.Error(err))
		}
	}

	result, err := s.finder.FindCompletedByKey(ctx, s.db, key)
	if err != nil {
		return nil, fmt.Errorf("durable idempotency lookup: %w", err)
	}
	if result == nil {
		observability.IncrementIdempotencyEvent("miss")
		return nil, nil
	}

	observability.IncrementIdempotencyEvent("durable_hit")
	s.cache(ctx, key, result)
	return result, nil
}

// Set caches the result after a successful transfer.
func (s *Store) Set(ctx context.Context, key string, result *models.TransferResult) error {
	s.cache(ctx, key, result)
	return nil
}

func (s *Store) cache(ctx context.Context, key string, result *models.TransferResult) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		zap.L().Warn("marshal idempotency cache entry", zap.Error(err))
		return
	}
	if err := s.redis.Set(ctx, cacheKey(key), payload, s.ttl).Err(); err != nil {
		zap.L().Warn("redis idempotency cache set failed", zap.Error(err))
	}
}

// cacheKey hashes the caller-supplied key so arbitrary input never lands in
// the redis keyspace verbatim.
func cacheKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s:%s", cacheKeyPrefix, hex.EncodeToString(sum[:]))
}
