// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "time"

// RunAction is the operation a provisioning run performed.
type RunAction string

const (
	RunActionApply   RunAction = "apply"
	RunActionDestroy RunAction = "destroy"
)

// RunStatus is the terminal state of a provisioning run.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run records one provisioning pass over the fleet.
type Run struct {
	ID         string    `json:"id"`
	Action     RunAction `json:"action"`
	Models     []string  `json:"models"`
	Status     RunStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
