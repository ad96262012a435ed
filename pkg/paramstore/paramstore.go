// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chatforge/modelfleet/pkg/core/schema"
	"github.com/chatforge/modelfleet/pkg/provider"
)

// ErrParameterNotFound is returned when a parameter does not exist.
var ErrParameterNotFound = errors.New("parameter not found")

// Providers is the registry of parameter store backend implementations.
// Import implementation packages with blank imports to register them:
//
//	import _ "github.com/chatforge/modelfleet/pkg/paramstore/memory"
//	import _ "github.com/chatforge/modelfleet/pkg/paramstore/ssm"
var Providers = provider.NewRegistry[Store]("parameter_store")

// Store defines the interface for pluggable parameter store backends.
type Store interface {
	Put(ctx context.Context, path, value string) error
	Get(ctx context.Context, path string) (string, error)
	Close(ctx context.Context) error
}

// PublishModels serializes the descriptor list as a JSON array and writes
// it at path. A nil list is written as an empty array so readers can
// distinguish "no models enabled" from "never provisioned".
func PublishModels(ctx context.Context, s Store, path string, models []schema.ModelDescriptor) error {
	if models == nil {
		models = []schema.ModelDescriptor{}
	}
	data, err := json.Marshal(models)
	if err != nil {
		return fmt.Errorf("marshal model descriptors: %w", err)
	}
	if err := s.Put(ctx, path, string(data)); err != nil {
		return fmt.Errorf("publish models parameter %q: %w", path, err)
	}
	return nil
}

// ReadModels reads and decodes the descriptor list stored at path.
func ReadModels(ctx context.Context, s Store, path string) ([]schema.ModelDescriptor, error) {
	value, err := s.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read models parameter %q: %w", path, err)
	}
	var models []schema.ModelDescriptor
	if err := json.Unmarshal([]byte(value), &models); err != nil {
		return nil, fmt.Errorf("decode models parameter %q: %w", path, err)
	}
	return models, nil
}
