// Package redis persists the daemon's durable local state under
// well-known keys: device id, cached remote document id, the last-known
// snapshot and the last sync metadata. All values are JSON strings.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/markstack/markstack/internal/domain"
)

// Store handles Redis operations for local sync state.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store.
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// EnsureDeviceID returns the persisted device id, generating and storing
// a fresh one on first run. The id is purely for conflict attribution,
// never identity or auth.
func (s *Store) EnsureDeviceID(ctx context.Context) (string, error) {
	id, err := s.client.Get(ctx, KeyDeviceID).Result()
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("failed to read device id: %w", err)
	}

	id = uuid.NewString()
	if err := s.client.Set(ctx, KeyDeviceID, id, 0).Err(); err != nil {
		return "", fmt.Errorf("failed to persist device id: %w", err)
	}
	return id, nil
}

// CachedDocumentID returns the cached remote document id, "" when never
// discovered.
func (s *Store) CachedDocumentID(ctx context.Context) (string, error) {
	id, err := s.client.Get(ctx, KeyDocumentID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read document id: %w", err)
	}
	return id, nil
}

// SaveDocumentID caches the remote document id after discovery.
func (s *Store) SaveDocumentID(ctx context.Context, id string) error {
	if err := s.client.Set(ctx, KeyDocumentID, id, 0).Err(); err != nil {
		return fmt.Errorf("failed to cache document id: %w", err)
	}
	return nil
}

// SaveSnapshot persists the last-known local snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, KeySnapshot, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the persisted snapshot, nil when none exists yet.
func (s *Store) LoadSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	data, err := s.client.Get(ctx, KeySnapshot).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// SaveMetadata persists the last sync metadata record.
func (s *Store) SaveMetadata(ctx context.Context, m domain.SyncMetadata) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal sync metadata: %w", err)
	}
	if err := s.client.Set(ctx, KeyMetadata, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save sync metadata: %w", err)
	}
	return nil
}

// LastMetadata returns the persisted sync metadata, nil when this device
// has never completed a sync.
func (s *Store) LastMetadata(ctx context.Context) (*domain.SyncMetadata, error) {
	data, err := s.client.Get(ctx, KeyMetadata).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync metadata: %w", err)
	}

	var m domain.SyncMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sync metadata: %w", err)
	}
	return &m, nil
}
