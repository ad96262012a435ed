// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package memory_test

import (
	"testing"

	"github.com/chatforge/modelfleet/pkg/artifacts"
	"github.com/chatforge/modelfleet/pkg/artifacts/artifactstest"
	"github.com/chatforge/modelfleet/pkg/artifacts/memory"
)

func TestMemoryConformance(t *testing.T) {
	artifactstest.RunConformanceTests(t, func(t *testing.T) artifacts.Store {
		return memory.New()
	})
}
