// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package endpoints manages the SageMaker resources backing one model:
// a Model, an EndpointConfig and an Endpoint, all sharing the derived
// model name.
package endpoints

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	smtypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws/smithy-go"

	"github.com/chatforge/modelfleet/pkg/catalog"
)

// API is the subset of the SageMaker client used by the service.
type API interface {
	CreateModel(ctx context.Context, input *sagemaker.CreateModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateModelOutput, error)
	CreateEndpointConfig(ctx context.Context, input *sagemaker.CreateEndpointConfigInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointConfigOutput, error)
	CreateEndpoint(ctx context.Context, input *sagemaker.CreateEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointOutput, error)
	DescribeEndpoint(ctx context.Context, input *sagemaker.DescribeEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error)
	DeleteEndpoint(ctx context.Context, input *sagemaker.DeleteEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteEndpointOutput, error)
	DeleteEndpointConfig(ctx context.Context, input *sagemaker.DeleteEndpointConfigInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteEndpointConfigOutput, error)
	DeleteModel(ctx context.Context, input *sagemaker.DeleteModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteModelOutput, error)
}

// Options configures the service.
type Options struct {
	Region   string
	Endpoint string // custom endpoint for LocalStack compatibility
}

// ApplyOptions carries per-apply inputs resolved by the caller.
type ApplyOptions struct {
	ExecutionRoleARN string
	ModelDataURL     string // s3:// URL of a staged archive; empty when the container pulls from the Hub
}

// Service provisions and tears down endpoint resources.
type Service struct {
	client API
}

// New creates a Service with a real SageMaker client.
func New(ctx context.Context, opts Options) (*Service, error) {
	optFns := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	smOpts := []func(*sagemaker.Options){}
	if opts.Endpoint != "" {
		smOpts = append(smOpts, func(o *sagemaker.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		})
	}

	return &Service{client: sagemaker.NewFromConfig(cfg, smOpts...)}, nil
}

// NewWithClient creates a Service around an existing client. Used in tests.
func NewWithClient(client API) *Service {
	return &Service{client: client}
}

// Apply creates the model, endpoint config and endpoint for the given spec
// and returns the endpoint ARN. The operation is idempotent: resources that
// already exist are kept, and an already-deployed endpoint is returned as is.
func (s *Service) Apply(ctx context.Context, spec catalog.EndpointSpec, opts ApplyOptions) (string, error) {
	if opts.ExecutionRoleARN == "" {
		return "", fmt.Errorf("endpoint %s: execution role is required", spec.Name)
	}

	if out, err := s.client.DescribeEndpoint(ctx, &sagemaker.DescribeEndpointInput{
		EndpointName: aws.String(spec.Name),
	}); err == nil {
		return aws.ToString(out.EndpointArn), nil
	} else if !isNotFound(err) {
		return "", fmt.Errorf("describe endpoint %s: %w", spec.Name, err)
	}

	container := &smtypes.ContainerDefinition{
		Image:       aws.String(spec.Image),
		Environment: spec.Environment,
	}
	if opts.ModelDataURL != "" {
		container.ModelDataUrl = aws.String(opts.ModelDataURL)
	}

	_, err := s.client.CreateModel(ctx, &sagemaker.CreateModelInput{
		ModelName:        aws.String(spec.Name),
		ExecutionRoleArn: aws.String(opts.ExecutionRoleARN),
		PrimaryContainer: container,
	})
	if err != nil && !isInUse(err) {
		return "", fmt.Errorf("create model %s: %w", spec.Name, err)
	}

	_, err = s.client.CreateEndpointConfig(ctx, &sagemaker.CreateEndpointConfigInput{
		EndpointConfigName: aws.String(spec.Name),
		ProductionVariants: []smtypes.ProductionVariant{{
			VariantName:           aws.String("primary"),
			ModelName:             aws.String(spec.Name),
			InitialInstanceCount:  aws.Int32(spec.InstanceCount),
			InstanceType:          smtypes.ProductionVariantInstanceType(spec.InstanceType),
			ContainerStartupHealthCheckTimeoutInSeconds: aws.Int32(spec.StartupTimeoutSeconds),
		}},
	})
	if err != nil && !isInUse(err) {
		return "", fmt.Errorf("create endpoint config %s: %w", spec.Name, err)
	}

	out, err := s.client.CreateEndpoint(ctx, &sagemaker.CreateEndpointInput{
		EndpointName:       aws.String(spec.Name),
		EndpointConfigName: aws.String(spec.Name),
	})
	if err != nil {
		return "", fmt.Errorf("create endpoint %s: %w", spec.Name, err)
	}
	return aws.ToString(out.EndpointArn), nil
}

// Destroy removes the endpoint, its config and its model, in that order.
// Missing resources are skipped so a partial teardown can be retried.
func (s *Service) Destroy(ctx context.Context, name string) error {
	if _, err := s.client.DeleteEndpoint(ctx, &sagemaker.DeleteEndpointInput{
		EndpointName: aws.String(name),
	}); err != nil && !isNotFound(err) {
		return fmt.Errorf("delete endpoint %s: %w", name, err)
	}

	if _, err := s.client.DeleteEndpointConfig(ctx, &sagemaker.DeleteEndpointConfigInput{
		EndpointConfigName: aws.String(name),
	}); err != nil && !isNotFound(err) {
		return fmt.Errorf("delete endpoint config %s: %w", name, err)
	}

	if _, err := s.client.DeleteModel(ctx, &sagemaker.DeleteModelInput{
		ModelName: aws.String(name),
	}); err != nil && !isNotFound(err) {
		return fmt.Errorf("delete model %s: %w", name, err)
	}
	return nil
}

// Status returns the endpoint status string ("InService", "Creating", ...)
// or "NotFound" when the endpoint does not exist.
func (s *Service) Status(ctx context.Context, name string) (string, error) {
	out, err := s.client.DescribeEndpoint(ctx, &sagemaker.DescribeEndpointInput{
		EndpointName: aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return "NotFound", nil
		}
		return "", fmt.Errorf("describe endpoint %s: %w", name, err)
	}
	return string(out.EndpointStatus), nil
}

func isInUse(err error) bool {
	var inUse *smtypes.ResourceInUse
	return errors.As(err, &inUse)
}

// SageMaker reports missing endpoints as a ValidationException rather than
// a typed not-found error.
func isNotFound(err error) bool {
	var nf *smtypes.ResourceNotFound
	if errors.As(err, &nf) {
		return true
	}
	var ae smithy.APIError
	return errors.As(err, &ae) &&
		ae.ErrorCode() == "ValidationException" &&
		strings.Contains(ae.ErrorMessage(), "Could not find")
}
