package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix    = "call:session:"
	defaultTTL          = 1 * time.Hour
	updateRetryAttempts = 5
	sweepScanBatchSize  = 128
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	Addr     string        `split_words:"true" required:"true"`
	Password string        `split_words:"true"`
	DB       int           `split_words:"true" default:"0"`
	TTL      time.Duration `split_words:"true" default:"1h"`
}

// RedisStoreOption customizes a RedisStore.
type RedisStoreOption func(*RedisStore)

func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// RedisStore keeps sessions in Redis, one JSON value per call. Per-call
// atomicity comes from an optimistic WATCH/MULTI/EXEC loop; the key TTL is a
// second line of defense behind the engine's expiry sweeper so identity data
// cannot outlive an abandoned call even if the sweeper stalls.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	s := &RedisStore{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		ttl:       defaultTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *RedisStore) Get(ctx context.Context, callID string) (*CallSession, error) {
	key, err := s.key(callID)
	if err != nil {
		return nil, err
	}
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return decodeSession([]byte(val))
}

func (s *RedisStore) Create(ctx context.Context, callID string, now time.Time) (*CallSession, error) {
	key, err := s.key(callID)
	if err != nil {
		return nil, err
	}

	sess := NewCallSession(callID, now)
	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	created, err := s.client.SetNX(ctx, key, payload, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx: %w", err)
	}
	if created {
		return sess, nil
	}
	// Someone else already created it; idempotent create returns theirs.
	return s.Get(ctx, callID)
}

func (s *RedisStore) Update(ctx context.Context, callID string, mutate func(*CallSession) error) (*CallSession, error) {
	if mutate == nil {
		return nil, errors.New("nil mutator")
	}
	key, err := s.key(callID)
	if err != nil {
		return nil, err
	}

	var updated *CallSession
	txn := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}

		sess, err := decodeSession([]byte(val))
		if err != nil {
			return err
		}
		if err := mutate(sess); err != nil {
			return err
		}
		if err := sess.Validate(); err != nil {
			return err
		}

		payload, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		if err == nil {
			updated = sess
		}
		return err
	}

	for attempt := 0; attempt < updateRetryAttempts; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue // concurrent writer, retry against fresh state
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("redis update: contention on call %s", callID)
}

func (s *RedisStore) Delete(ctx context.Context, callID string) error {
	key, err := s.key(callID)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) SweepExpired(ctx context.Context, now time.Time, timeout time.Duration) ([]*CallSession, error) {
	var purged []*CallSession

	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", sweepScanBatchSize).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return purged, fmt.Errorf("redis get during sweep: %w", err)
		}
		sess, err := decodeSession([]byte(val))
		if err != nil {
			// Unreadable payloads are purged outright; identity data must
			// not linger in an undecodable key.
			_ = s.client.Del(ctx, key).Err()
			continue
		}
		if !sess.Expired(now, timeout) {
			continue
		}
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return purged, fmt.Errorf("redis del during sweep: %w", err)
		}
		purged = append(purged, sess)
	}
	if err := iter.Err(); err != nil {
		return purged, fmt.Errorf("redis scan: %w", err)
	}
	return purged, nil
}

func (s *RedisStore) key(callID string) (string, error) {
	if strings.TrimSpace(callID) == "" {
		return "", ErrInvalidCallID
	}
	return s.keyPrefix + callID, nil
}

func decodeSession(raw []byte) (*CallSession, error) {
	var sess CallSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if err := sess.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session loaded from store: %w", err)
	}
	return &sess, nil
}
