// Package session memoizes the persistent session handle used for grounded
// answering. The handle is created lazily on first use and dropped whenever
// the knowledge source changes, so the next request binds a fresh session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrNoKnowledgeSource is returned when no knowledge source is configured.
var ErrNoKnowledgeSource = errors.New("no knowledge source configured")

// Creator creates a session bound to a knowledge source.
type Creator interface {
	CreateSession(ctx context.Context, knowledgeSourceID string) (string, error)
}

// Cache holds at most one live session handle. Invalidate takes effect
// immediately: a creation that started before it never populates the cache.
type Cache struct {
	creator           Creator
	knowledgeSourceID string
	logger            *slog.Logger

	mu         sync.Mutex
	handle     string
	generation uint64

	group singleflight.Group
}

// NewCache creates a cache for sessions bound to knowledgeSourceID.
func NewCache(creator Creator, knowledgeSourceID string) *Cache {
	return &Cache{
		creator:           creator,
		knowledgeSourceID: knowledgeSourceID,
		logger:            slog.Default().With("component", "session_cache"),
	}
}

// Handle returns the cached session handle, creating one if needed.
// Concurrent callers share a single creation.
func (c *Cache) Handle(ctx context.Context) (string, error) {
	if c.knowledgeSourceID == "" {
		return "", ErrNoKnowledgeSource
	}

	c.mu.Lock()
	if c.handle != "" {
		h := c.handle
		c.mu.Unlock()
		return h, nil
	}
	gen := c.generation
	c.mu.Unlock()

	key := fmt.Sprintf("session-%d", gen)
	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		if c.handle != "" && c.generation == gen {
			h := c.handle
			c.mu.Unlock()
			return h, nil
		}
		c.mu.Unlock()

		handle, err := c.creator.CreateSession(ctx, c.knowledgeSourceID)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation != gen {
			c.logger.Info("discarding session created before invalidation", "session_id", handle)
			return handle, nil
		}
		c.handle = handle
		return handle, nil
	})
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return v.(string), nil
}

// Invalidate drops the cached handle. It returns once the cache is empty;
// the next Handle call creates a new session.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if c.handle != "" {
		c.logger.Info("session invalidated", "session_id", c.handle)
	}
	c.handle = ""
}

// Cached returns the current handle without creating one.
func (c *Cache) Cached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle, c.handle != ""
}
