package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/storoescobar/commercial-events-calendar/internal/models"
)

// documentKey is where the versioned session document lives in Redis.
const documentKey = "eventscal:document"

// RedisDocumentStore implements DocumentStore on Redis. The persisted
// document is a single versioned record, a natural fit for one JSON
// value under one key.
type RedisDocumentStore struct {
	client *redis.Client
}

func NewRedisDocumentStore(client *redis.Client) *RedisDocumentStore {
	return &RedisDocumentStore{client: client}
}

// Load returns the current document or nil when the key is absent.
func (s *RedisDocumentStore) Load(ctx context.Context) (*models.Document, error) {
	payload, err := s.client.Get(ctx, documentKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	var doc models.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return &doc, nil
}

// Save replaces the current document.
func (s *RedisDocumentStore) Save(ctx context.Context, doc *models.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := s.client.Set(ctx, documentKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}
