package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"tradeflow/internal/domain/reports"
	"tradeflow/pkg/logger"
)

// RedisStore keeps one namespace as a redis hash, one field per cache key.
// Each upsert is a single HSET, so concurrent refreshes of different keys
// never overwrite each other.
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
	key       string
}

var _ reports.DocumentStore = (*RedisStore)(nil)

// NewRedisStore creates a redis-backed store. The hash key is prefix:cache:namespace.
func NewRedisStore(client redis.UniversalClient, prefix, namespace string) *RedisStore {
	parts := []string{"cache", namespace}
	if prefix != "" {
		parts = append([]string{prefix}, parts...)
	}
	return &RedisStore{
		client:    client,
		namespace: namespace,
		key:       strings.Join(parts, ":"),
	}
}

// Namespace implements reports.DocumentStore.
func (s *RedisStore) Namespace() string { return s.namespace }

// Key returns the redis hash key.
func (s *RedisStore) Key() string { return s.key }

// Load implements reports.DocumentStore.
func (s *RedisStore) Load(ctx context.Context) reports.Document {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		logger.Warn(ctx, "cache hash unreadable", "key", s.key, "error", err)
		return reports.Document{}
	}

	doc := make(reports.Document, len(fields))
	for field, value := range fields {
		if !json.Valid([]byte(value)) {
			logger.Warn(ctx, "cache entry corrupt, skipping", "key", s.key, "field", field)
			continue
		}
		doc[field] = json.RawMessage(value)
	}
	return doc
}

// Merge implements reports.DocumentStore.
func (s *RedisStore) Merge(ctx context.Context, entries reports.Document) error {
	if len(entries) == 0 {
		return nil
	}
	values := make([]any, 0, len(entries)*2)
	for field, raw := range entries {
		values = append(values, field, string(raw))
	}
	if err := s.client.HSet(ctx, s.key, values...).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", s.key, err)
	}
	return nil
}

// Prune implements reports.DocumentStore.
func (s *RedisStore) Prune(ctx context.Context, stale func(key string, raw json.RawMessage) bool) (int, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("hgetall %s: %w", s.key, err)
	}

	var drop []string
	for field, value := range fields {
		if stale(field, json.RawMessage(value)) {
			drop = append(drop, field)
		}
	}
	if len(drop) == 0 {
		return 0, nil
	}

	removed, err := s.client.HDel(ctx, s.key, drop...).Result()
	if err != nil {
		return 0, fmt.Errorf("hdel %s: %w", s.key, err)
	}
	return int(removed), nil
}
