// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package provision runs the fleet synthesis: build the enabled endpoint
// specs, deploy them, publish the descriptor parameter and attach the
// optional start/stop schedules.
package provision

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chatforge/modelfleet/pkg/artifacts"
	"github.com/chatforge/modelfleet/pkg/catalog"
	"github.com/chatforge/modelfleet/pkg/core/config"
	"github.com/chatforge/modelfleet/pkg/core/schema"
	"github.com/chatforge/modelfleet/pkg/history"
	"github.com/chatforge/modelfleet/pkg/observability/logging"
	"github.com/chatforge/modelfleet/pkg/paramstore"
	"github.com/chatforge/modelfleet/pkg/provision/endpoints"
	"github.com/chatforge/modelfleet/pkg/provision/iamrole"
	"github.com/chatforge/modelfleet/pkg/provision/schedule"
)

// EndpointService deploys and tears down endpoint resources.
type EndpointService interface {
	Apply(ctx context.Context, spec catalog.EndpointSpec, opts endpoints.ApplyOptions) (string, error)
	Destroy(ctx context.Context, name string) error
	Status(ctx context.Context, name string) (string, error)
}

// RoleService manages the fleet IAM roles.
type RoleService interface {
	EnsureExecutionRole(ctx context.Context, prefix string) (string, error)
	EnsureSchedulerRole(ctx context.Context, prefix string) (string, error)
	DeleteRole(ctx context.Context, roleName string) error
}

// ScheduleService manages per-endpoint start/stop schedules.
type ScheduleService interface {
	Apply(ctx context.Context, w schedule.Window, endpointName string) error
	Remove(ctx context.Context, group, endpointName string) error
	RemoveGroup(ctx context.Context, group string) error
}

// Provisioner wires the fleet services together.
type Provisioner struct {
	cfg       *config.Config
	logger    *logging.Logger
	endpoints EndpointService
	roles     RoleService
	schedules ScheduleService
	params    paramstore.Store
	artifacts artifacts.Store
	history   history.Store
}

// Deps are the collaborators a Provisioner needs. Artifacts and History may
// be nil; artifact resolution and run recording are then skipped.
type Deps struct {
	Endpoints EndpointService
	Roles     RoleService
	Schedules ScheduleService
	Params    paramstore.Store
	Artifacts artifacts.Store
	History   history.Store
}

// New creates a Provisioner.
func New(cfg *config.Config, logger *logging.Logger, deps Deps) *Provisioner {
	return &Provisioner{
		cfg:       cfg,
		logger:    logger,
		endpoints: deps.Endpoints,
		roles:     deps.Roles,
		schedules: deps.Schedules,
		params:    deps.Params,
		artifacts: deps.Artifacts,
		history:   deps.History,
	}
}

// Result summarizes a provisioning pass.
type Result struct {
	RunID       string
	Descriptors []schema.ModelDescriptor
}

// Plan returns the descriptors that an apply would publish, without touching
// any AWS resource. The endpoint field carries the derived name since no
// ARN exists yet.
func (p *Provisioner) Plan() ([]schema.ModelDescriptor, error) {
	specs, err := catalog.Build(p.cfg)
	if err != nil {
		return nil, err
	}
	descriptors := make([]schema.ModelDescriptor, 0, len(specs))
	for _, spec := range specs {
		descriptors = append(descriptors, spec.Descriptor(spec.Name))
	}
	return descriptors, nil
}

// Apply runs the full synthesis pass and returns the published descriptors.
func (p *Provisioner) Apply(ctx context.Context) (*Result, error) {
	started := time.Now().UTC()
	runID := "run_" + uuid.NewString()

	specs, err := catalog.Build(p.cfg)
	if err != nil {
		return nil, p.finishRun(ctx, runID, schema.RunActionApply, nil, started, err)
	}
	modelNames := specNames(specs)

	executionRole := p.cfg.Fleet.ExecutionRoleARN
	if executionRole == "" {
		executionRole, err = p.roles.EnsureExecutionRole(ctx, p.cfg.Fleet.Prefix)
		if err != nil {
			return nil, p.finishRun(ctx, runID, schema.RunActionApply, modelNames, started, err)
		}
		p.logger.Info("Ensured execution role", "arn", executionRole)
	}

	descriptors := make([]schema.ModelDescriptor, 0, len(specs))
	for _, spec := range specs {
		opts := endpoints.ApplyOptions{
			ExecutionRoleARN: executionRole,
			ModelDataURL:     p.resolveArtifact(ctx, spec.ModelID),
		}
		arn, err := p.endpoints.Apply(ctx, spec, opts)
		if err != nil {
			return nil, p.finishRun(ctx, runID, schema.RunActionApply, modelNames, started, err)
		}
		p.logger.Info("Applied endpoint", "name", spec.Name, "arn", arn, "instance_type", spec.InstanceType)
		descriptors = append(descriptors, spec.Descriptor(arn))
	}

	if err := paramstore.PublishModels(ctx, p.params, p.cfg.Parameter.Path, descriptors); err != nil {
		return nil, p.finishRun(ctx, runID, schema.RunActionApply, modelNames, started, err)
	}
	p.logger.Info("Published models parameter", "path", p.cfg.Parameter.Path, "models", len(descriptors))

	if p.cfg.Schedule.Enabled {
		if err := p.applySchedules(ctx, specs); err != nil {
			return nil, p.finishRun(ctx, runID, schema.RunActionApply, modelNames, started, err)
		}
	}

	if err := p.finishRun(ctx, runID, schema.RunActionApply, modelNames, started, nil); err != nil {
		return nil, err
	}
	return &Result{RunID: runID, Descriptors: descriptors}, nil
}

// Destroy tears down schedules and endpoints and publishes an empty
// descriptor list.
func (p *Provisioner) Destroy(ctx context.Context) error {
	started := time.Now().UTC()
	runID := "run_" + uuid.NewString()

	specs, err := catalog.Build(p.cfg)
	if err != nil {
		return p.finishRun(ctx, runID, schema.RunActionDestroy, nil, started, err)
	}
	modelNames := specNames(specs)

	for _, spec := range specs {
		if p.cfg.Schedule.Enabled {
			if err := p.schedules.Remove(ctx, p.cfg.Schedule.Group, spec.Name); err != nil {
				return p.finishRun(ctx, runID, schema.RunActionDestroy, modelNames, started, err)
			}
		}
		if err := p.endpoints.Destroy(ctx, spec.Name); err != nil {
			return p.finishRun(ctx, runID, schema.RunActionDestroy, modelNames, started, err)
		}
		p.logger.Info("Destroyed endpoint", "name", spec.Name)
	}

	if err := p.removeFleetResources(ctx); err != nil {
		return p.finishRun(ctx, runID, schema.RunActionDestroy, modelNames, started, err)
	}

	if err := paramstore.PublishModels(ctx, p.params, p.cfg.Parameter.Path, nil); err != nil {
		return p.finishRun(ctx, runID, schema.RunActionDestroy, modelNames, started, err)
	}

	return p.finishRun(ctx, runID, schema.RunActionDestroy, modelNames, started, nil)
}

// removeFleetResources tears down the schedule group and the roles that
// Apply created. Roles configured by ARN belong to the operator and are
// left alone.
func (p *Provisioner) removeFleetResources(ctx context.Context) error {
	prefix := p.cfg.Fleet.Prefix

	if p.cfg.Schedule.Enabled {
		if err := p.schedules.RemoveGroup(ctx, p.cfg.Schedule.Group); err != nil {
			return err
		}
		p.logger.Info("Removed schedule group", "group", p.cfg.Schedule.Group)

		if p.cfg.Schedule.RoleARN == "" {
			name := iamrole.SchedulerRoleName(prefix)
			if err := p.roles.DeleteRole(ctx, name); err != nil {
				return err
			}
			p.logger.Info("Deleted scheduler role", "name", name)
		}
	}

	if p.cfg.Fleet.ExecutionRoleARN == "" {
		name := iamrole.ExecutionRoleName(prefix)
		if err := p.roles.DeleteRole(ctx, name); err != nil {
			return err
		}
		p.logger.Info("Deleted execution role", "name", name)
	}
	return nil
}

// EndpointStatus is one row of a fleet status report.
type EndpointStatus struct {
	Name   string
	Status string
}

// Status reports the live status of every enabled endpoint.
func (p *Provisioner) Status(ctx context.Context) ([]EndpointStatus, error) {
	specs, err := catalog.Build(p.cfg)
	if err != nil {
		return nil, err
	}

	out := make([]EndpointStatus, 0, len(specs))
	for _, spec := range specs {
		status, err := p.endpoints.Status(ctx, spec.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, EndpointStatus{Name: spec.Name, Status: status})
	}
	return out, nil
}

func (p *Provisioner) applySchedules(ctx context.Context, specs []catalog.EndpointSpec) error {
	roleARN := p.cfg.Schedule.RoleARN
	if roleARN == "" {
		var err error
		roleARN, err = p.roles.EnsureSchedulerRole(ctx, p.cfg.Fleet.Prefix)
		if err != nil {
			return err
		}
		p.logger.Info("Ensured scheduler role", "arn", roleARN)
	}

	window := schedule.Window{
		StartCron: p.cfg.Schedule.StartCron,
		StopCron:  p.cfg.Schedule.StopCron,
		Timezone:  p.cfg.Schedule.Timezone,
		Group:     p.cfg.Schedule.Group,
		RoleARN:   roleARN,
	}
	for _, spec := range specs {
		if err := p.schedules.Apply(ctx, window, spec.Name); err != nil {
			return err
		}
		p.logger.Info("Attached schedules", "endpoint", spec.Name,
			"start", window.StartCron, "stop", window.StopCron, "timezone", window.Timezone)
	}
	return nil
}

// resolveArtifact returns the fetchable location of a staged archive for
// the model, or empty when none is staged.
func (p *Provisioner) resolveArtifact(ctx context.Context, modelID string) string {
	if p.artifacts == nil {
		return ""
	}
	list, err := p.artifacts.ListArtifacts(ctx)
	if err != nil {
		p.logger.Warn("Failed to list artifacts", "error", err)
		return ""
	}
	for _, artifact := range list {
		if artifact.ModelID == modelID {
			if loc := p.artifacts.Location(artifact.ID); loc != "" {
				return loc
			}
		}
	}
	return ""
}

// finishRun records the run outcome and passes the original error through.
func (p *Provisioner) finishRun(ctx context.Context, runID string, action schema.RunAction, models []string, started time.Time, runErr error) error {
	if p.history == nil {
		return runErr
	}

	run := &schema.Run{
		ID:         runID,
		Action:     action,
		Models:     models,
		Status:     schema.RunStatusSucceeded,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
	if runErr != nil {
		run.Status = schema.RunStatusFailed
		run.Error = runErr.Error()
	}
	if err := p.history.RecordRun(ctx, run); err != nil {
		p.logger.Warn("Failed to record run", "run_id", runID, "error", err)
	}
	return runErr
}

func specNames(specs []catalog.EndpointSpec) []string {
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, string(spec.Kind))
	}
	return names
}
