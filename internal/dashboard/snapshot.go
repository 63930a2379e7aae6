package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nniahq/portal-api/internal/appointments"
)

// ErrSnapshotNotFound indicates no preview has been refreshed for the client yet.
var ErrSnapshotNotFound = errors.New("dashboard: snapshot not found")

// Preview is the refreshed upcoming-appointments panel for one client.
type Preview struct {
	ClientID         string                     `json:"client_id"`
	ReferenceInstant time.Time                  `json:"reference_instant"`
	ReferenceSource  string                     `json:"reference_source"`
	RefreshedAt      time.Time                  `json:"refreshed_at"`
	Appointments     []appointments.Appointment `json:"appointments"`
}

// PreviewStore persists refreshed previews for handler reads.
type PreviewStore interface {
	Get(ctx context.Context, clientID string) (*Preview, error)
	Set(ctx context.Context, preview Preview) error
}

func previewKey(clientID string) string {
	return "dashboard:preview:" + clientID
}

// RedisStore keeps previews in Redis so every API replica serves the same
// snapshot.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("dashboard: nil redis client")
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, clientID string) (*Preview, error) {
	raw, err := s.client.Get(ctx, previewKey(clientID)).Result()
	if err == redis.Nil {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dashboard: redis get: %w", err)
	}
	var p Preview
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("dashboard: decode snapshot: %w", err)
	}
	return &p, nil
}

func (s *RedisStore) Set(ctx context.Context, preview Preview) error {
	raw, err := json.Marshal(preview)
	if err != nil {
		return fmt.Errorf("dashboard: encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, previewKey(preview.ClientID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("dashboard: redis set: %w", err)
	}
	return nil
}

// MemoryStore is the single-process fallback used when Redis is not
// configured.
type MemoryStore struct {
	mu       sync.RWMutex
	previews map[string]Preview
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{previews: make(map[string]Preview)}
}

func (s *MemoryStore) Get(_ context.Context, clientID string) (*Preview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.previews[clientID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return &p, nil
}

func (s *MemoryStore) Set(_ context.Context, preview Preview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews[preview.ClientID] = preview
	return nil
}
