// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package artifactstest provides a shared conformance test suite for
// artifacts.Store implementations. Each backend should call
// RunConformanceTests from its own _test.go file.
package artifactstest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chatforge/modelfleet/pkg/artifacts"
)

// RunConformanceTests exercises a Store implementation against the shared
// contract. The newStore function is called once per sub-test to provide an
// isolated store instance.
func RunConformanceTests(t *testing.T, newStore func(t *testing.T) artifacts.Store) {
	t.Helper()

	t.Run("PutAndGet", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		a := &artifacts.Artifact{
			ID:        "art_abc123",
			ModelID:   "sagemaker.amazon-FalconLite",
			Filename:  "model.tar.gz",
			Bytes:     5,
			Content:   []byte("model"),
			CreatedAt: time.Now().Truncate(time.Millisecond),
		}

		if err := store.PutArtifact(ctx, a); err != nil {
			t.Fatalf("PutArtifact: %v", err)
		}

		got, err := store.GetArtifact(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetArtifact: %v", err)
		}

		if got.ID != a.ID || got.ModelID != a.ModelID || got.Filename != a.Filename || got.Bytes != a.Bytes {
			t.Errorf("GetArtifact returned unexpected metadata: %+v", got)
		}

		// Content should be nil from GetArtifact (metadata-only)
		if got.Content != nil {
			t.Errorf("expected Content to be nil from GetArtifact, got %d bytes", len(got.Content))
		}
	})

	t.Run("GetContent", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		content := []byte("archive bytes here")
		a := &artifacts.Artifact{
			ID:        "art_content1",
			ModelID:   "sagemaker.mistralai-Mistral-7B-Instruct-v0.1",
			Filename:  "model.tar.gz",
			Bytes:     int64(len(content)),
			Content:   content,
			CreatedAt: time.Now().Truncate(time.Millisecond),
		}

		if err := store.PutArtifact(ctx, a); err != nil {
			t.Fatalf("PutArtifact: %v", err)
		}

		got, err := store.GetArtifactContent(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetArtifactContent: %v", err)
		}
		if string(got) != string(content) {
			t.Errorf("content mismatch: got %q, want %q", got, content)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		if _, err := store.GetArtifact(ctx, "art_missing"); !errors.Is(err, artifacts.ErrArtifactNotFound) {
			t.Errorf("GetArtifact err = %v, want ErrArtifactNotFound", err)
		}
		if _, err := store.GetArtifactContent(ctx, "art_missing"); !errors.Is(err, artifacts.ErrArtifactNotFound) {
			t.Errorf("GetArtifactContent err = %v, want ErrArtifactNotFound", err)
		}
		if err := store.DeleteArtifact(ctx, "art_missing"); !errors.Is(err, artifacts.ErrArtifactNotFound) {
			t.Errorf("DeleteArtifact err = %v, want ErrArtifactNotFound", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		a := &artifacts.Artifact{
			ID:        "art_delete1",
			ModelID:   "sagemaker.amazon-FalconLite",
			Filename:  "model.tar.gz",
			Bytes:     3,
			Content:   []byte("xyz"),
			CreatedAt: time.Now(),
		}
		if err := store.PutArtifact(ctx, a); err != nil {
			t.Fatalf("PutArtifact: %v", err)
		}
		if err := store.DeleteArtifact(ctx, a.ID); err != nil {
			t.Fatalf("DeleteArtifact: %v", err)
		}
		if _, err := store.GetArtifact(ctx, a.ID); !errors.Is(err, artifacts.ErrArtifactNotFound) {
			t.Errorf("expected ErrArtifactNotFound after delete, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		for _, id := range []string{"art_b", "art_a"} {
			a := &artifacts.Artifact{
				ID:        id,
				ModelID:   "sagemaker.amazon-FalconLite",
				Filename:  "model.tar.gz",
				Bytes:     1,
				Content:   []byte("x"),
				CreatedAt: time.Now(),
			}
			if err := store.PutArtifact(ctx, a); err != nil {
				t.Fatalf("PutArtifact(%s): %v", id, err)
			}
		}

		list, err := store.ListArtifacts(ctx)
		if err != nil {
			t.Fatalf("ListArtifacts: %v", err)
		}
		if len(list) != 2 || list[0].ID != "art_a" || list[1].ID != "art_b" {
			t.Errorf("ListArtifacts = %+v, want [art_a art_b]", list)
		}
	})
}
