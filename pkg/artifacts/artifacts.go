// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/chatforge/modelfleet/pkg/provider"
)

// ErrArtifactNotFound is returned when an artifact does not exist.
var ErrArtifactNotFound = errors.New("artifact not found")

// Providers is the registry of artifact store backend implementations.
// Import implementation packages with blank imports to register them:
//
//	import _ "github.com/chatforge/modelfleet/pkg/artifacts/memory"
//	import _ "github.com/chatforge/modelfleet/pkg/artifacts/filesystem"
//	import _ "github.com/chatforge/modelfleet/pkg/artifacts/s3"
var Providers = provider.NewRegistry[Store]("artifact_store")

// Artifact is a staged model archive (model.tar.gz) with metadata.
type Artifact struct {
	ID        string
	ModelID   string // model identifier the archive belongs to
	Filename  string
	Bytes     int64
	Content   []byte // populated for PutArtifact input; nil for GetArtifact output
	CreatedAt time.Time
}

// Stage reads a local archive and stores it as an artifact for the given
// model identifier. The returned artifact carries the generated ID.
func Stage(ctx context.Context, s Store, modelID, path string) (*Artifact, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", path, err)
	}

	artifact := &Artifact{
		ID:        "art_" + uuid.NewString(),
		ModelID:   modelID,
		Filename:  filepath.Base(path),
		Bytes:     int64(len(content)),
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.PutArtifact(ctx, artifact); err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}
	return artifact, nil
}

// Store defines the interface for pluggable artifact storage backends.
// Location returns the address an endpoint container can fetch the archive
// from (an s3:// URL for the S3 backend); backends whose artifacts are not
// reachable by the serving container return an empty string.
type Store interface {
	PutArtifact(ctx context.Context, artifact *Artifact) error
	GetArtifact(ctx context.Context, artifactID string) (*Artifact, error)
	GetArtifactContent(ctx context.Context, artifactID string) ([]byte, error)
	DeleteArtifact(ctx context.Context, artifactID string) error
	ListArtifacts(ctx context.Context) ([]*Artifact, error)
	Location(artifactID string) string
	Close(ctx context.Context) error
}
