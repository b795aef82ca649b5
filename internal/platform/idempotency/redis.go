package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "idempotency:"

// RedisStore keeps records as JSON strings under "idempotency:<sha256(key)>", expiring with the record.
type RedisStore struct {
	client redis.Cmdable
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps a go-redis client, usually the one shared with the session store.
func NewRedisStore(client redis.Cmdable) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("idempotency: redis client is required")
	}
	return &RedisStore{client: client}, nil
}

// Reserve implements Store. SETNX decides ownership; a loser reads the winner's record.
func (s *RedisStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time) (Reservation, error) {
	now = now.UTC()
	record := pendingRecord(key, fingerprint, now)
	payload, err := json.Marshal(record)
	if err != nil {
		return Reservation{}, fmt.Errorf("idempotency: encode record: %w", err)
	}

	// A record can expire between SETNX and GET; one retry covers that window.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, redisKey(key), payload, PendingLease).Result()
		if err != nil {
			return Reservation{}, fmt.Errorf("idempotency: reserve: %w", err)
		}
		if ok {
			return Reservation{State: ReservationStateNew, Record: record}, nil
		}
		existing, found, err := s.load(ctx, key)
		if err != nil {
			return Reservation{}, err
		}
		if found {
			return reservationFor(existing, fingerprint)
		}
	}
	return Reservation{State: ReservationStatePending, Record: record}, nil
}

// SaveResponse implements Store.
func (s *RedisStore) SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	now = now.UTC()
	prev, found, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	if found && prev.Fingerprint != fingerprint {
		return ErrFingerprintMismatch
	}
	record := completedRecord(prev, key, fingerprint, resp, now, ttl)
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("idempotency: encode record: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(key), payload, record.ExpiresAt.Sub(now)).Err(); err != nil {
		return fmt.Errorf("idempotency: save response: %w", err)
	}
	return nil
}

// Release implements Store.
func (s *RedisStore) Release(ctx context.Context, key, fingerprint string) error {
	existing, found, err := s.load(ctx, key)
	if err != nil || !found {
		return err
	}
	if existing.Fingerprint != fingerprint {
		return nil
	}
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("idempotency: release: %w", err)
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context, key string) (Record, bool, error) {
	raw, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("idempotency: load: %w", err)
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, false, fmt.Errorf("idempotency: decode record: %w", err)
	}
	return record, true, nil
}

func redisKey(key string) string {
	return redisKeyPrefix + recordID(key)
}
