package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/events"
	"github.com/noah-isme/toko-storefront/internal/obs"
)

// DefaultKey is the storage key the storefront pages use for the cart blob.
const DefaultKey = "carrito_demo"

// Updated is the payload of the cartUpdated broadcast.
type Updated struct {
	Carrito Cart `json:"carrito"`
}

// Backend persists raw cart blobs.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
}

// Store reads and writes whole carts per session and broadcasts every write.
type Store struct {
	Backend Backend
	Bus     *events.Bus
	Key     string
	Logger  zerolog.Logger
}

func (s *Store) key(sessionID string) string {
	base := s.Key
	if base == "" {
		base = DefaultKey
	}
	return base + ":" + sessionID
}

// Read returns the session cart. A missing or unparseable blob yields an empty cart.
func (s *Store) Read(ctx context.Context, sessionID string) (Cart, error) {
	if s == nil || s.Backend == nil {
		return nil, errors.New("cart store not configured")
	}
	data, ok, err := s.Backend.Get(ctx, s.key(sessionID))
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if !ok || len(data) == 0 {
		return Cart{}, nil
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		s.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("discarding malformed cart")
		return Cart{}, nil
	}
	return normalize(c), nil
}

// Write overwrites the session cart and broadcasts cartUpdated with the new snapshot.
func (s *Store) Write(ctx context.Context, sessionID string, c Cart) error {
	if s == nil || s.Backend == nil {
		return errors.New("cart store not configured")
	}
	if c == nil {
		c = Cart{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.Backend.Set(ctx, s.key(sessionID), data); err != nil {
		return fmt.Errorf("write cart: %w", err)
	}
	if obs.CartWritesTotal != nil {
		obs.CartWritesTotal.Inc()
	}
	if s.Bus == nil {
		return nil
	}
	ev := events.Event{Topic: events.TopicCartUpdated, Scope: sessionID, Payload: Updated{Carrito: c.Clone()}}
	if err := s.Bus.Emit(ctx, ev); err != nil {
		s.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("cart broadcast failed")
	}
	return nil
}

// Clear empties the session cart.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	return s.Write(ctx, sessionID, Cart{})
}

// RedisBackend stores blobs in Redis with a sliding session TTL.
type RedisBackend struct {
	Client *redis.Client
	TTL    time.Duration
}

// Get implements Backend.
func (b RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if b.Client == nil {
		return nil, false, errors.New("redis client not configured")
	}
	data, err := b.Client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if b.TTL > 0 {
		_ = b.Client.Expire(ctx, key, b.TTL).Err()
	}
	return data, true, nil
}

// Set implements Backend.
func (b RedisBackend) Set(ctx context.Context, key string, data []byte) error {
	if b.Client == nil {
		return errors.New("redis client not configured")
	}
	return b.Client.Set(ctx, key, data, b.TTL).Err()
}

// MemoryBackend keeps blobs in process memory.
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryBackend constructs an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

// Get implements Backend.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Set implements Backend.
func (m *MemoryBackend) Set(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = append([]byte(nil), data...)
	return nil
}
