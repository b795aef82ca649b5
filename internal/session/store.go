package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when no state exists for an id.
	ErrNotFound = errors.New("session: not found")
	// ErrCorrupt is returned when stored state can no longer be decoded.
	ErrCorrupt = errors.New("session: stored state is unreadable")
)

// Store persists session state.
type Store interface {
	Load(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, state *State, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

const sweepEvery = 256

// MemoryStore keeps states in process memory. Expired entries are swept lazily.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
	writes  int
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store. clock may be nil.
func NewMemoryStore(clock func() time.Time) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{entries: make(map[string]memoryEntry), now: clock}
}

// Load returns a decoded copy of the stored state.
func (m *MemoryStore) Load(_ context.Context, id string) (*State, error) {
	m.mu.Lock()
	entry, ok := m.entries[id]
	if ok && !m.now().Before(entry.expires) {
		delete(m.entries, id)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	state, err := decodeState(entry.data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, id, err)
	}
	return state, nil
}

// Save stores state until ttl elapses.
func (m *MemoryStore) Save(_ context.Context, state *State, ttl time.Duration) error {
	if state == nil || strings.TrimSpace(state.ID) == "" {
		return errors.New("session: state id is required")
	}
	data, err := state.encode()
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", state.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.entries[state.ID] = memoryEntry{data: data, expires: now.Add(ttl)}
	m.writes++
	if m.writes%sweepEvery == 0 {
		for id, entry := range m.entries {
			if !now.Before(entry.expires) {
				delete(m.entries, id)
			}
		}
	}
	return nil
}

// Delete drops the state for id.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, including expired ones not yet swept.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// RedisStore keeps states as JSON strings under "session:<id>".
type RedisStore struct {
	client redis.Cmdable
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps a go-redis client.
func NewRedisStore(client redis.Cmdable) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("session: redis client is required")
	}
	return &RedisStore{client: client}, nil
}

// Load fetches and decodes a state.
func (r *RedisStore) Load(ctx context.Context, id string) (*State, error) {
	data, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}
	state, err := decodeState(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, id, err)
	}
	return state, nil
}

// Save writes the state with an expiry of ttl.
func (r *RedisStore) Save(ctx context.Context, state *State, ttl time.Duration) error {
	if state == nil || strings.TrimSpace(state.ID) == "" {
		return errors.New("session: state id is required")
	}
	data, err := state.encode()
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", state.ID, err)
	}
	if err := r.client.Set(ctx, redisKey(state.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

// Delete removes the key for id.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("session: redis delete: %w", err)
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func redisKey(id string) string {
	return "session:" + id
}
