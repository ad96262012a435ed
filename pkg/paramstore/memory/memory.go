// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"sync"

	"github.com/chatforge/modelfleet/pkg/paramstore"
)

func init() {
	paramstore.Providers.Register("memory", func(_ context.Context, _ map[string]string) (paramstore.Store, error) {
		return New(), nil
	})
}

// compile-time check
var _ paramstore.Store = (*Store)(nil)

// Store is an in-memory implementation of paramstore.Store, used in tests
// and dry runs.
type Store struct {
	mu     sync.RWMutex
	params map[string]string
}

// New creates a new in-memory store
func New() *Store {
	return &Store{params: make(map[string]string)}
}

// Put stores or overwrites a parameter value.
func (s *Store) Put(_ context.Context, path, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params[path] = value
	return nil
}

// Get retrieves a parameter value by path.
func (s *Store) Get(_ context.Context, path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, exists := s.params[path]
	if !exists {
		return "", paramstore.ErrParameterNotFound
	}
	return value, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close(_ context.Context) error { return nil }
