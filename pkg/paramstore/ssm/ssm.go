// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package ssm

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/chatforge/modelfleet/pkg/paramstore"
)

func init() {
	paramstore.Providers.Register("ssm", func(ctx context.Context, params map[string]string) (paramstore.Store, error) {
		return New(ctx, Options{
			Region:   params["region"],
			Endpoint: params["endpoint"],
		})
	})
}

// compile-time check
var _ paramstore.Store = (*Store)(nil)

// API is the subset of the SSM client used by the store.
type API interface {
	PutParameter(ctx context.Context, input *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
	GetParameter(ctx context.Context, input *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Options configures the SSM backend.
type Options struct {
	Region   string // e.g. "us-east-1"
	Endpoint string // custom endpoint for LocalStack compatibility
}

// Store implements paramstore.Store backed by SSM Parameter Store.
type Store struct {
	client API
}

// New creates an SSM-backed Store.
func New(ctx context.Context, opts Options) (*Store, error) {
	optFns := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	ssmOpts := []func(*ssm.Options){}
	if opts.Endpoint != "" {
		ssmOpts = append(ssmOpts, func(o *ssm.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		})
	}

	return &Store{client: ssm.NewFromConfig(cfg, ssmOpts...)}, nil
}

// NewWithClient creates a Store around an existing client. Used in tests.
func NewWithClient(client API) *Store {
	return &Store{client: client}
}

// Put writes the parameter as a standard String parameter, overwriting any
// previous value.
func (s *Store) Put(ctx context.Context, path, value string) error {
	_, err := s.client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(path),
		Value:     aws.String(value),
		Type:      ssmtypes.ParameterTypeString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("ssm put parameter: %w", err)
	}
	return nil
}

// Get retrieves a parameter value by path.
func (s *Store) Get(ctx context.Context, path string) (string, error) {
	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(path),
	})
	if err != nil {
		var nf *ssmtypes.ParameterNotFound
		if errors.As(err, &nf) {
			return "", paramstore.ErrParameterNotFound
		}
		return "", fmt.Errorf("ssm get parameter: %w", err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", paramstore.ErrParameterNotFound
	}
	return *out.Parameter.Value, nil
}

// Close is a no-op; the underlying client holds no connections.
func (s *Store) Close(_ context.Context) error { return nil }
