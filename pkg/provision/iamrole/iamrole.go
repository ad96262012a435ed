// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package iamrole creates the IAM roles the fleet needs: the SageMaker
// execution role the endpoints run under, and the scheduler role EventBridge
// Scheduler assumes to start and stop endpoints.
package iamrole

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
)

// API is the subset of the IAM client used by the service.
type API interface {
	GetRole(ctx context.Context, input *iam.GetRoleInput, optFns ...func(*iam.Options)) (*iam.GetRoleOutput, error)
	CreateRole(ctx context.Context, input *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	PutRolePolicy(ctx context.Context, input *iam.PutRolePolicyInput, optFns ...func(*iam.Options)) (*iam.PutRolePolicyOutput, error)
	DeleteRolePolicy(ctx context.Context, input *iam.DeleteRolePolicyInput, optFns ...func(*iam.Options)) (*iam.DeleteRolePolicyOutput, error)
	DeleteRole(ctx context.Context, input *iam.DeleteRoleInput, optFns ...func(*iam.Options)) (*iam.DeleteRoleOutput, error)
}

// Options configures the service.
type Options struct {
	Endpoint string // custom endpoint for LocalStack compatibility
}

// Service ensures fleet roles exist.
type Service struct {
	client API
}

// New creates a Service with a real IAM client.
func New(ctx context.Context, opts Options) (*Service, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	iamOpts := []func(*iam.Options){}
	if opts.Endpoint != "" {
		iamOpts = append(iamOpts, func(o *iam.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		})
	}

	return &Service{client: iam.NewFromConfig(cfg, iamOpts...)}, nil
}

// NewWithClient creates a Service around an existing client. Used in tests.
func NewWithClient(client API) *Service {
	return &Service{client: client}
}

// ExecutionRoleName returns the name of the fleet's SageMaker execution role.
func ExecutionRoleName(prefix string) string { return prefix + "-sagemaker-execution" }

// SchedulerRoleName returns the name of the fleet's scheduler role.
func SchedulerRoleName(prefix string) string { return prefix + "-endpoint-scheduler" }

type policyStatement struct {
	Effect    string `json:"Effect"`
	Action    any    `json:"Action"`
	Resource  any    `json:"Resource,omitempty"`
	Principal any    `json:"Principal,omitempty"`
}

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

func trustPolicy(service string) string {
	doc := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Action:    "sts:AssumeRole",
			Principal: map[string]string{"Service": service},
		}},
	}
	data, _ := json.Marshal(doc)
	return string(data)
}

// EnsureExecutionRole returns the ARN of the SageMaker execution role for
// the fleet, creating it if missing. The role lets endpoint containers pull
// images, read model data and write logs.
func (s *Service) EnsureExecutionRole(ctx context.Context, prefix string) (string, error) {
	roleName := ExecutionRoleName(prefix)
	policy := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{
			{
				Effect: "Allow",
				Action: []string{
					"ecr:GetAuthorizationToken",
					"ecr:BatchGetImage",
					"ecr:GetDownloadUrlForLayer",
				},
				Resource: "*",
			},
			{
				Effect: "Allow",
				Action: []string{
					"s3:GetObject",
					"s3:ListBucket",
				},
				Resource: "*",
			},
			{
				Effect: "Allow",
				Action: []string{
					"logs:CreateLogGroup",
					"logs:CreateLogStream",
					"logs:PutLogEvents",
				},
				Resource: "*",
			},
		},
	}
	return s.ensureRole(ctx, roleName, "sagemaker.amazonaws.com", policy)
}

// EnsureSchedulerRole returns the ARN of the role EventBridge Scheduler
// assumes, creating it if missing. The role is limited to managing the
// fleet's own endpoints (those carrying the fleet prefix).
func (s *Service) EnsureSchedulerRole(ctx context.Context, prefix string) (string, error) {
	roleName := SchedulerRoleName(prefix)
	policy := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect: "Allow",
			Action: []string{
				"sagemaker:CreateEndpoint",
				"sagemaker:DeleteEndpoint",
				"sagemaker:DescribeEndpoint",
				"sagemaker:DescribeEndpointConfig",
			},
			Resource: []string{
				"arn:aws:sagemaker:*:*:endpoint/*",
				"arn:aws:sagemaker:*:*:endpoint-config/*",
			},
		}},
	}
	return s.ensureRole(ctx, roleName, "scheduler.amazonaws.com", policy)
}

// DeleteRole removes a fleet role and its inline policy. Missing roles are
// skipped so teardown can be retried.
func (s *Service) DeleteRole(ctx context.Context, roleName string) error {
	if _, err := s.client.DeleteRolePolicy(ctx, &iam.DeleteRolePolicyInput{
		RoleName:   aws.String(roleName),
		PolicyName: aws.String(roleName + "-policy"),
	}); err != nil && !isNoSuchEntity(err) {
		return fmt.Errorf("delete role policy %s: %w", roleName, err)
	}
	if _, err := s.client.DeleteRole(ctx, &iam.DeleteRoleInput{
		RoleName: aws.String(roleName),
	}); err != nil && !isNoSuchEntity(err) {
		return fmt.Errorf("delete role %s: %w", roleName, err)
	}
	return nil
}

func (s *Service) ensureRole(ctx context.Context, roleName, trustService string, policy policyDocument) (string, error) {
	if out, err := s.client.GetRole(ctx, &iam.GetRoleInput{
		RoleName: aws.String(roleName),
	}); err == nil {
		return aws.ToString(out.Role.Arn), nil
	} else if !isNoSuchEntity(err) {
		return "", fmt.Errorf("get role %s: %w", roleName, err)
	}

	created, err := s.client.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(roleName),
		AssumeRolePolicyDocument: aws.String(trustPolicy(trustService)),
	})
	if err != nil {
		return "", fmt.Errorf("create role %s: %w", roleName, err)
	}

	policyBytes, err := json.Marshal(policy)
	if err != nil {
		return "", fmt.Errorf("marshal policy: %w", err)
	}
	if _, err := s.client.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       aws.String(roleName),
		PolicyName:     aws.String(roleName + "-policy"),
		PolicyDocument: aws.String(string(policyBytes)),
	}); err != nil {
		return "", fmt.Errorf("put role policy %s: %w", roleName, err)
	}

	return aws.ToString(created.Role.Arn), nil
}

func isNoSuchEntity(err error) bool {
	var nse *iamtypes.NoSuchEntityException
	return errors.As(err, &nse)
}
