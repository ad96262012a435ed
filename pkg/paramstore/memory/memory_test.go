// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/chatforge/modelfleet/pkg/paramstore"
)

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Put(ctx, "/fleet/models", "[]"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.Get(ctx, "/fleet/models")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "[]" {
		t.Errorf("Get = %q, want %q", got, "[]")
	}
}

func TestPut_Overwrites(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Put(ctx, "/p", "old"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Put(ctx, "/p", "new"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := s.Get(ctx, "/p")
	if got != "new" {
		t.Errorf("Get = %q, want %q", got, "new")
	}
}

func TestGet_NotFound(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), "/missing")
	if !errors.Is(err, paramstore.ErrParameterNotFound) {
		t.Errorf("err = %v, want ErrParameterNotFound", err)
	}
}

func TestRegistered(t *testing.T) {
	s, err := paramstore.Providers.New(context.Background(), "memory", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s == nil {
		t.Fatal("expected a store instance")
	}
}
