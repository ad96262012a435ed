// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"errors"

	"github.com/chatforge/modelfleet/pkg/core/schema"
	"github.com/chatforge/modelfleet/pkg/provider"
)

// ErrRunNotFound is returned when a run does not exist.
var ErrRunNotFound = errors.New("run not found")

// Providers is the registry of run history backend implementations.
// Import implementation packages with blank imports to register them:
//
//	import _ "github.com/chatforge/modelfleet/pkg/history/memory"
//	import _ "github.com/chatforge/modelfleet/pkg/history/postgres"
var Providers = provider.NewRegistry[Store]("run_history")

// Store defines the interface for pluggable run history backends.
type Store interface {
	RecordRun(ctx context.Context, run *schema.Run) error
	GetRun(ctx context.Context, runID string) (*schema.Run, error)
	// ListRuns returns runs newest first, at most limit entries
	// (limit <= 0 means no cap).
	ListRuns(ctx context.Context, limit int) ([]*schema.Run, error)
	Close() error
}
