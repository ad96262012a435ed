// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/chatforge/modelfleet/pkg/core/schema"
	"github.com/chatforge/modelfleet/pkg/history"
)

func init() {
	history.Providers.Register("memory", func(_ context.Context, _ map[string]string) (history.Store, error) {
		return New(), nil
	})
}

// compile-time check
var _ history.Store = (*Store)(nil)

// Store is an in-memory implementation of history.Store
type Store struct {
	mu   sync.RWMutex
	runs map[string]*schema.Run
}

// New creates a new in-memory store
func New() *Store {
	return &Store{runs: make(map[string]*schema.Run)}
}

// RecordRun stores a run record
func (s *Store) RecordRun(_ context.Context, run *schema.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %s already recorded", run.ID)
	}
	copied := *run
	s.runs[run.ID] = &copied
	return nil
}

// GetRun retrieves a run by ID
func (s *Store) GetRun(_ context.Context, runID string) (*schema.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[runID]
	if !exists {
		return nil, history.ErrRunNotFound
	}
	copied := *run
	return &copied, nil
}

// ListRuns returns runs newest first
func (s *Store) ListRuns(_ context.Context, limit int) ([]*schema.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*schema.Run, 0, len(s.runs))
	for _, run := range s.runs {
		copied := *run
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }
