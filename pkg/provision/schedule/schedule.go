// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package schedule attaches start/stop schedules to fleet endpoints using
// EventBridge Scheduler universal targets. Stopping deletes the endpoint
// (the config and model are retained), starting re-creates it from the
// retained config.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/scheduler"
	schedtypes "github.com/aws/aws-sdk-go-v2/service/scheduler/types"
)

const (
	createEndpointTarget = "arn:aws:scheduler:::aws-sdk:sagemaker:createEndpoint"
	deleteEndpointTarget = "arn:aws:scheduler:::aws-sdk:sagemaker:deleteEndpoint"
)

// API is the subset of the Scheduler client used by the service.
type API interface {
	CreateScheduleGroup(ctx context.Context, input *scheduler.CreateScheduleGroupInput, optFns ...func(*scheduler.Options)) (*scheduler.CreateScheduleGroupOutput, error)
	CreateSchedule(ctx context.Context, input *scheduler.CreateScheduleInput, optFns ...func(*scheduler.Options)) (*scheduler.CreateScheduleOutput, error)
	UpdateSchedule(ctx context.Context, input *scheduler.UpdateScheduleInput, optFns ...func(*scheduler.Options)) (*scheduler.UpdateScheduleOutput, error)
	DeleteSchedule(ctx context.Context, input *scheduler.DeleteScheduleInput, optFns ...func(*scheduler.Options)) (*scheduler.DeleteScheduleOutput, error)
	DeleteScheduleGroup(ctx context.Context, input *scheduler.DeleteScheduleGroupInput, optFns ...func(*scheduler.Options)) (*scheduler.DeleteScheduleGroupOutput, error)
}

// Options configures the service.
type Options struct {
	Region   string
	Endpoint string // custom endpoint for LocalStack compatibility
}

// Window is the start/stop timetable applied to every endpoint.
type Window struct {
	StartCron string // e.g. "0 8 ? * MON-FRI *"
	StopCron  string // e.g. "0 20 ? * MON-FRI *"
	Timezone  string // e.g. "Europe/Paris"
	Group     string // schedule group holding the fleet's schedules
	RoleARN   string // role assumed by the scheduler
}

// Service manages per-endpoint start/stop schedules.
type Service struct {
	client API
}

// New creates a Service with a real Scheduler client.
func New(ctx context.Context, opts Options) (*Service, error) {
	optFns := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	schedOpts := []func(*scheduler.Options){}
	if opts.Endpoint != "" {
		schedOpts = append(schedOpts, func(o *scheduler.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		})
	}

	return &Service{client: scheduler.NewFromConfig(cfg, schedOpts...)}, nil
}

// NewWithClient creates a Service around an existing client. Used in tests.
func NewWithClient(client API) *Service {
	return &Service{client: client}
}

// Apply ensures the schedule group exists and upserts the start and stop
// schedules for the named endpoint. The endpoint config is expected to
// share the endpoint name.
func (s *Service) Apply(ctx context.Context, w Window, endpointName string) error {
	if _, err := s.client.CreateScheduleGroup(ctx, &scheduler.CreateScheduleGroupInput{
		Name: aws.String(w.Group),
	}); err != nil && !isConflict(err) {
		return fmt.Errorf("create schedule group %s: %w", w.Group, err)
	}

	startInput, err := json.Marshal(map[string]string{
		"EndpointName":       endpointName,
		"EndpointConfigName": endpointName,
	})
	if err != nil {
		return fmt.Errorf("marshal start target input: %w", err)
	}
	stopInput, err := json.Marshal(map[string]string{
		"EndpointName": endpointName,
	})
	if err != nil {
		return fmt.Errorf("marshal stop target input: %w", err)
	}

	if err := s.upsert(ctx, w, endpointName+"-start", w.StartCron, createEndpointTarget, string(startInput)); err != nil {
		return err
	}
	return s.upsert(ctx, w, endpointName+"-stop", w.StopCron, deleteEndpointTarget, string(stopInput))
}

// Remove deletes the start and stop schedules for the named endpoint.
// Missing schedules are skipped.
func (s *Service) Remove(ctx context.Context, group, endpointName string) error {
	for _, name := range []string{endpointName + "-start", endpointName + "-stop"} {
		if _, err := s.client.DeleteSchedule(ctx, &scheduler.DeleteScheduleInput{
			Name:      aws.String(name),
			GroupName: aws.String(group),
		}); err != nil && !isNotFound(err) {
			return fmt.Errorf("delete schedule %s: %w", name, err)
		}
	}
	return nil
}

// RemoveGroup deletes the fleet's schedule group. Any schedules still in the
// group are deleted with it. A missing group is skipped.
func (s *Service) RemoveGroup(ctx context.Context, group string) error {
	if _, err := s.client.DeleteScheduleGroup(ctx, &scheduler.DeleteScheduleGroupInput{
		Name: aws.String(group),
	}); err != nil && !isNotFound(err) {
		return fmt.Errorf("delete schedule group %s: %w", group, err)
	}
	return nil
}

func (s *Service) upsert(ctx context.Context, w Window, name, cron, targetARN, targetInput string) error {
	target := &schedtypes.Target{
		Arn:     aws.String(targetARN),
		RoleArn: aws.String(w.RoleARN),
		Input:   aws.String(targetInput),
	}
	window := &schedtypes.FlexibleTimeWindow{
		Mode: schedtypes.FlexibleTimeWindowModeOff,
	}

	_, err := s.client.CreateSchedule(ctx, &scheduler.CreateScheduleInput{
		Name:                       aws.String(name),
		GroupName:                  aws.String(w.Group),
		ScheduleExpression:         aws.String("cron(" + cron + ")"),
		ScheduleExpressionTimezone: aws.String(w.Timezone),
		State:                      schedtypes.ScheduleStateEnabled,
		Target:                     target,
		FlexibleTimeWindow:         window,
	})
	if err == nil {
		return nil
	}
	if !isConflict(err) {
		return fmt.Errorf("create schedule %s: %w", name, err)
	}

	if _, err := s.client.UpdateSchedule(ctx, &scheduler.UpdateScheduleInput{
		Name:                       aws.String(name),
		GroupName:                  aws.String(w.Group),
		ScheduleExpression:         aws.String("cron(" + cron + ")"),
		ScheduleExpressionTimezone: aws.String(w.Timezone),
		State:                      schedtypes.ScheduleStateEnabled,
		Target:                     target,
		FlexibleTimeWindow:         window,
	}); err != nil {
		return fmt.Errorf("update schedule %s: %w", name, err)
	}
	return nil
}

func isConflict(err error) bool {
	var conflict *schedtypes.ConflictException
	return errors.As(err, &conflict)
}

func isNotFound(err error) bool {
	var nf *schedtypes.ResourceNotFoundException
	return errors.As(err, &nf)
}
