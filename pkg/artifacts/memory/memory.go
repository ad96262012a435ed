// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/chatforge/modelfleet/pkg/artifacts"
)

func init() {
	artifacts.Providers.Register("memory", func(_ context.Context, _ map[string]string) (artifacts.Store, error) {
		return New(), nil
	})
}

// compile-time check
var _ artifacts.Store = (*Store)(nil)

// Store is an in-memory implementation of artifacts.Store.
type Store struct {
	mu       sync.RWMutex
	metadata map[string]*artifacts.Artifact
	content  map[string][]byte
}

// New creates a new in-memory store
func New() *Store {
	return &Store{
		metadata: make(map[string]*artifacts.Artifact),
		content:  make(map[string][]byte),
	}
}

// PutArtifact stores the artifact content and metadata.
func (s *Store) PutArtifact(_ context.Context, artifact *artifacts.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := *artifact
	meta.Content = nil
	s.metadata[artifact.ID] = &meta
	s.content[artifact.ID] = artifact.Content
	return nil
}

// GetArtifact retrieves artifact metadata by ID.
func (s *Store) GetArtifact(_ context.Context, artifactID string) (*artifacts.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, exists := s.metadata[artifactID]
	if !exists {
		return nil, artifacts.ErrArtifactNotFound
	}
	copied := *meta
	return &copied, nil
}

// GetArtifactContent retrieves the raw archive bytes.
func (s *Store) GetArtifactContent(_ context.Context, artifactID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, exists := s.content[artifactID]
	if !exists {
		return nil, artifacts.ErrArtifactNotFound
	}
	return content, nil
}

// DeleteArtifact removes an artifact.
func (s *Store) DeleteArtifact(_ context.Context, artifactID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.metadata[artifactID]; !exists {
		return artifacts.ErrArtifactNotFound
	}
	delete(s.metadata, artifactID)
	delete(s.content, artifactID)
	return nil
}

// ListArtifacts returns all artifacts sorted by ID.
func (s *Store) ListArtifacts(_ context.Context) ([]*artifacts.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*artifacts.Artifact, 0, len(s.metadata))
	for _, meta := range s.metadata {
		copied := *meta
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Location returns empty: in-memory artifacts are not reachable by a
// serving container.
func (s *Store) Location(_ string) string { return "" }

// Close is a no-op for the in-memory store.
func (s *Store) Close(_ context.Context) error { return nil }
