// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package iamrole

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
)

type fakeIAM struct {
	roles    map[string]*iamtypes.Role
	policies map[string]string // role name -> policy document
	creates  int
}

func newFakeIAM() *fakeIAM {
	return &fakeIAM{
		roles:    make(map[string]*iamtypes.Role),
		policies: make(map[string]string),
	}
}

func (f *fakeIAM) GetRole(_ context.Context, input *iam.GetRoleInput, _ ...func(*iam.Options)) (*iam.GetRoleOutput, error) {
	role, ok := f.roles[aws.ToString(input.RoleName)]
	if !ok {
		return nil, &iamtypes.NoSuchEntityException{}
	}
	return &iam.GetRoleOutput{Role: role}, nil
}

func (f *fakeIAM) CreateRole(_ context.Context, input *iam.CreateRoleInput, _ ...func(*iam.Options)) (*iam.CreateRoleOutput, error) {
	f.creates++
	name := aws.ToString(input.RoleName)
	role := &iamtypes.Role{
		RoleName:                 input.RoleName,
		Arn:                      aws.String("arn:aws:iam::123456789012:role/" + name),
		AssumeRolePolicyDocument: input.AssumeRolePolicyDocument,
	}
	f.roles[name] = role
	return &iam.CreateRoleOutput{Role: role}, nil
}

func (f *fakeIAM) PutRolePolicy(_ context.Context, input *iam.PutRolePolicyInput, _ ...func(*iam.Options)) (*iam.PutRolePolicyOutput, error) {
	f.policies[aws.ToString(input.RoleName)] = aws.ToString(input.PolicyDocument)
	return &iam.PutRolePolicyOutput{}, nil
}

func (f *fakeIAM) DeleteRolePolicy(_ context.Context, input *iam.DeleteRolePolicyInput, _ ...func(*iam.Options)) (*iam.DeleteRolePolicyOutput, error) {
	name := aws.ToString(input.RoleName)
	if _, ok := f.policies[name]; !ok {
		return nil, &iamtypes.NoSuchEntityException{}
	}
	delete(f.policies, name)
	return &iam.DeleteRolePolicyOutput{}, nil
}

func (f *fakeIAM) DeleteRole(_ context.Context, input *iam.DeleteRoleInput, _ ...func(*iam.Options)) (*iam.DeleteRoleOutput, error) {
	name := aws.ToString(input.RoleName)
	if _, ok := f.roles[name]; !ok {
		return nil, &iamtypes.NoSuchEntityException{}
	}
	delete(f.roles, name)
	return &iam.DeleteRoleOutput{}, nil
}

func TestEnsureSchedulerRole_CreatesOnce(t *testing.T) {
	ctx := context.Background()
	fake := newFakeIAM()
	svc := NewWithClient(fake)

	arn, err := svc.EnsureSchedulerRole(ctx, "chatforge")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if arn != "arn:aws:iam::123456789012:role/chatforge-endpoint-scheduler" {
		t.Errorf("arn = %q", arn)
	}

	trust := aws.ToString(fake.roles["chatforge-endpoint-scheduler"].AssumeRolePolicyDocument)
	if !strings.Contains(trust, "scheduler.amazonaws.com") {
		t.Errorf("trust policy = %s", trust)
	}

	policy := fake.policies["chatforge-endpoint-scheduler"]
	for _, action := range []string{"sagemaker:CreateEndpoint", "sagemaker:DeleteEndpoint"} {
		if !strings.Contains(policy, action) {
			t.Errorf("policy missing %s: %s", action, policy)
		}
	}

	// second call finds the existing role
	again, err := svc.EnsureSchedulerRole(ctx, "chatforge")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != arn {
		t.Errorf("arns differ: %q vs %q", arn, again)
	}
	if fake.creates != 1 {
		t.Errorf("role created %d times, want 1", fake.creates)
	}
}

func TestEnsureExecutionRole_TrustsSageMaker(t *testing.T) {
	ctx := context.Background()
	fake := newFakeIAM()
	svc := NewWithClient(fake)

	if _, err := svc.EnsureExecutionRole(ctx, "chatforge"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trust := aws.ToString(fake.roles["chatforge-sagemaker-execution"].AssumeRolePolicyDocument)
	if !strings.Contains(trust, "sagemaker.amazonaws.com") {
		t.Errorf("trust policy = %s", trust)
	}
	policy := fake.policies["chatforge-sagemaker-execution"]
	if !strings.Contains(policy, "ecr:BatchGetImage") || !strings.Contains(policy, "s3:GetObject") {
		t.Errorf("policy = %s", policy)
	}
}

func TestDeleteRole(t *testing.T) {
	ctx := context.Background()
	fake := newFakeIAM()
	svc := NewWithClient(fake)

	if _, err := svc.EnsureSchedulerRole(ctx, "chatforge"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.DeleteRole(ctx, "chatforge-endpoint-scheduler"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.roles) != 0 {
		t.Errorf("roles remaining: %v", fake.roles)
	}

	// deleting a missing role must not fail
	if err := svc.DeleteRole(ctx, "chatforge-endpoint-scheduler"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}
