// Package store keeps the last answer each user submitted for evaluation.
// Every submission replaces the previous one; entries are never merged.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/ahrav/go-mentor/internal/domain"
)

// ErrEmptyUser is returned when a user key is missing.
var ErrEmptyUser = errors.New("user key is required")

// SubmissionStore records the most recent extracted submission per user.
type SubmissionStore interface {
	// Put replaces the stored submission for user.
	Put(ctx context.Context, user string, doc domain.ExtractedDocument) error
	// Get returns the stored submission and whether one exists.
	Get(ctx context.Context, user string) (domain.ExtractedDocument, bool, error)
}

// MemoryStore is a process-local SubmissionStore.
type MemoryStore struct {
	entries sync.Map // user -> domain.ExtractedDocument
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Put implements SubmissionStore.
func (m *MemoryStore) Put(_ context.Context, user string, doc domain.ExtractedDocument) error {
	if user == "" {
		return ErrEmptyUser
	}
	m.entries.Store(user, doc)
	return nil
}

// Get implements SubmissionStore.
func (m *MemoryStore) Get(_ context.Context, user string) (domain.ExtractedDocument, bool, error) {
	if user == "" {
		return domain.ExtractedDocument{}, false, ErrEmptyUser
	}
	v, ok := m.entries.Load(user)
	if !ok {
		return domain.ExtractedDocument{}, false, nil
	}
	return v.(domain.ExtractedDocument), true, nil
}
