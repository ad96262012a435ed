// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/chatforge/modelfleet/pkg/artifacts"
)

func init() {
	artifacts.Providers.Register("filesystem", func(_ context.Context, params map[string]string) (artifacts.Store, error) {
		return New(params["base_dir"])
	})
}

// compile-time check
var _ artifacts.Store = (*Store)(nil)

// artifactMetadata is the on-disk representation stored in metadata.json.
type artifactMetadata struct {
	ID        string    `json:"id"`
	ModelID   string    `json:"model_id"`
	Filename  string    `json:"filename"`
	Bytes     int64     `json:"bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Store implements artifacts.Store backed by a local filesystem.
//
// Layout:
//
//	<baseDir>/<artifact_id>/model.tar.gz   — archive bytes
//	<baseDir>/<artifact_id>/metadata.json  — JSON metadata sidecar
type Store struct {
	baseDir string
}

// New creates a filesystem-backed Store, creating baseDir if it does not exist.
func New(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("filesystem artifact store: base_dir is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) archivePath(artifactID string) string {
	return filepath.Join(s.baseDir, artifactID, "model.tar.gz")
}

func (s *Store) metadataPath(artifactID string) string {
	return filepath.Join(s.baseDir, artifactID, "metadata.json")
}

// PutArtifact writes the archive and metadata sidecar to disk.
func (s *Store) PutArtifact(_ context.Context, artifact *artifacts.Artifact) error {
	dir := filepath.Join(s.baseDir, artifact.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	if err := os.WriteFile(s.archivePath(artifact.ID), artifact.Content, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}

	meta := artifactMetadata{
		ID:        artifact.ID,
		ModelID:   artifact.ModelID,
		Filename:  artifact.Filename,
		Bytes:     artifact.Bytes,
		CreatedAt: artifact.CreatedAt,
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(s.metadataPath(artifact.ID), metaBytes, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// GetArtifact returns artifact metadata (Content is nil).
func (s *Store) GetArtifact(_ context.Context, artifactID string) (*artifacts.Artifact, error) {
	meta, err := s.readMetadata(artifactID)
	if err != nil {
		return nil, err
	}
	return &artifacts.Artifact{
		ID:        meta.ID,
		ModelID:   meta.ModelID,
		Filename:  meta.Filename,
		Bytes:     meta.Bytes,
		CreatedAt: meta.CreatedAt,
	}, nil
}

// GetArtifactContent returns the raw archive bytes.
func (s *Store) GetArtifactContent(_ context.Context, artifactID string) ([]byte, error) {
	data, err := os.ReadFile(s.archivePath(artifactID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact %s: %w", artifactID, artifacts.ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return data, nil
}

// DeleteArtifact removes the artifact directory.
func (s *Store) DeleteArtifact(_ context.Context, artifactID string) error {
	if _, err := s.readMetadata(artifactID); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.baseDir, artifactID)); err != nil {
		return fmt.Errorf("remove artifact dir: %w", err)
	}
	return nil
}

// ListArtifacts returns all artifacts sorted by ID.
func (s *Store) ListArtifacts(_ context.Context) ([]*artifacts.Artifact, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read base dir: %w", err)
	}

	out := make([]*artifacts.Artifact, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.readMetadata(entry.Name())
		if err != nil {
			continue // skip directories without a sidecar
		}
		out = append(out, &artifacts.Artifact{
			ID:        meta.ID,
			ModelID:   meta.ModelID,
			Filename:  meta.Filename,
			Bytes:     meta.Bytes,
			CreatedAt: meta.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Location returns an empty string: a local path is not fetchable by a
// serving container, so filesystem-staged archives never become model data.
func (s *Store) Location(_ string) string { return "" }

// Close is a no-op for the filesystem store.
func (s *Store) Close(_ context.Context) error { return nil }

func (s *Store) readMetadata(artifactID string) (*artifactMetadata, error) {
	data, err := os.ReadFile(s.metadataPath(artifactID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact %s: %w", artifactID, artifacts.ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var meta artifactMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}
