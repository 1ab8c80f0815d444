package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-mentor/internal/domain"
)

// Redis store defaults.
const (
	DefaultKeyPrefix = "mentor:last_submission:"
	DefaultTTL       = 7 * 24 * time.Hour
)

// RedisStore is a SubmissionStore shared between processes. Values are JSON
// encoded and expire after TTL of inactivity.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	logger    *slog.Logger
}

// NewRedisStore creates a store on client. Zero values for prefix and ttl
// select the defaults.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client:    client,
		keyPrefix: prefix,
		ttl:       ttl,
		logger:    slog.Default().With("component", "submission_store"),
	}
}

// storedSubmission is the wire form kept in Redis.
type storedSubmission struct {
	Document   domain.ExtractedDocument `json:"document"`
	StoredAtMs int64                    `json:"stored_at_ms"`
}

func (s *RedisStore) key(user string) string {
	return s.keyPrefix + user
}

// Put implements SubmissionStore. SET replaces any previous value atomically.
func (s *RedisStore) Put(ctx context.Context, user string, doc domain.ExtractedDocument) error {
	if user == "" {
		return ErrEmptyUser
	}
	data, err := json.Marshal(storedSubmission{Document: doc, StoredAtMs: time.Now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}
	if err := s.client.Set(ctx, s.key(user), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store submission: %w", err)
	}
	return nil
}

// Get implements SubmissionStore. Corrupted entries are deleted and reported
// as missing.
func (s *RedisStore) Get(ctx context.Context, user string) (domain.ExtractedDocument, bool, error) {
	if user == "" {
		return domain.ExtractedDocument{}, false, ErrEmptyUser
	}
	data, err := s.client.Get(ctx, s.key(user)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ExtractedDocument{}, false, nil
	}
	if err != nil {
		return domain.ExtractedDocument{}, false, fmt.Errorf("failed to load submission: %w", err)
	}

	var stored storedSubmission
	if err := json.Unmarshal(data, &stored); err != nil {
		s.logger.Warn("dropping corrupted submission", "user", user, "error", err)
		if delErr := s.client.Del(ctx, s.key(user)).Err(); delErr != nil {
			s.logger.Error("failed to delete corrupted submission", "user", user, "error", delErr)
		}
		return domain.ExtractedDocument{}, false, nil
	}
	// Re-derive the word count so a hand-edited value cannot break the invariant.
	return domain.NewExtractedDocument(stored.Document.Text, stored.Document.Mode), true, nil
}
