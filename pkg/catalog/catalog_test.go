// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"testing"

	"github.com/chatforge/modelfleet/pkg/core/config"
	"github.com/chatforge/modelfleet/pkg/core/schema"
)

func testConfig(models ...string) *config.Config {
	cfg := config.Default()
	cfg.AWS.Region = "eu-west-1"
	cfg.Fleet.Models = models
	return cfg
}

func TestBuild_SingleModel(t *testing.T) {
	specs, err := Build(testConfig("falcon-lite"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("expected 1 spec, got %d", len(specs))
	}

	spec := specs[0]
	if spec.Name != "amazon-FalconLite" {
		t.Errorf("Name = %q, want %q", spec.Name, "amazon-FalconLite")
	}
	if spec.Interface != schema.InterfaceLangChain {
		t.Errorf("Interface = %q, want %q", spec.Interface, schema.InterfaceLangChain)
	}
	if !spec.RAGSupported {
		t.Error("expected RAGSupported")
	}
	if len(spec.InputModalities) != 1 || spec.InputModalities[0] != schema.ModalityText {
		t.Errorf("InputModalities = %v, want [TEXT]", spec.InputModalities)
	}
	if spec.Environment["HF_MODEL_QUANTIZE"] != "gptq" {
		t.Errorf("HF_MODEL_QUANTIZE = %q, want gptq", spec.Environment["HF_MODEL_QUANTIZE"])
	}
	if spec.Environment["MAX_INPUT_LENGTH"] != "12000" {
		t.Errorf("MAX_INPUT_LENGTH = %q, want 12000", spec.Environment["MAX_INPUT_LENGTH"])
	}
	if spec.InstanceType != "ml.g5.12xlarge" {
		t.Errorf("InstanceType = %q, want ml.g5.12xlarge", spec.InstanceType)
	}
}

func TestBuild_MultimodalModel(t *testing.T) {
	specs, err := Build(testConfig("idefics-9b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	spec := specs[0]
	if spec.Interface != schema.InterfaceIdefics {
		t.Errorf("Interface = %q, want %q", spec.Interface, schema.InterfaceIdefics)
	}
	if spec.RAGSupported {
		t.Error("idefics must not advertise RAG support")
	}
	want := []schema.Modality{schema.ModalityText, schema.ModalityImage}
	if len(spec.InputModalities) != 2 || spec.InputModalities[0] != want[0] || spec.InputModalities[1] != want[1] {
		t.Errorf("InputModalities = %v, want %v", spec.InputModalities, want)
	}
}

func TestBuild_OrderFollowsConfig(t *testing.T) {
	specs, err := Build(testConfig("mistral-7b-instruct", "falcon-lite"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(specs))
	}
	if specs[0].Kind != KindMistral7BInstruct || specs[1].Kind != KindFalconLite {
		t.Errorf("order = [%s %s], want [mistral-7b-instruct falcon-lite]", specs[0].Kind, specs[1].Kind)
	}
}

func TestBuild_UnknownKind(t *testing.T) {
	_, err := Build(testConfig("gpt-5"))
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestBuild_InstanceTypeOverride(t *testing.T) {
	cfg := testConfig("mistral-7b-instruct")
	cfg.Fleet.InstanceTypes = map[string]string{"mistral-7b-instruct": "ml.g5.4xlarge"}

	specs, err := Build(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if specs[0].InstanceType != "ml.g5.4xlarge" {
		t.Errorf("InstanceType = %q, want ml.g5.4xlarge", specs[0].InstanceType)
	}
}

func TestBuild_RegionInImage(t *testing.T) {
	specs, err := Build(testConfig("falcon-lite"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "763104351884.dkr.ecr.eu-west-1.amazonaws.com/huggingface-pytorch-tgi-inference:2.0.1-tgi1.1.0-gpu-py39-cu118-ubuntu20.04"
	if specs[0].Image != want {
		t.Errorf("Image = %q, want %q", specs[0].Image, want)
	}
}

func TestDescriptor(t *testing.T) {
	specs, err := Build(testConfig("falcon-lite"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := specs[0].Descriptor("arn:aws:sagemaker:eu-west-1:123456789012:endpoint/amazon-falconlite")
	if d.Name != "amazon-FalconLite" {
		t.Errorf("Name = %q", d.Name)
	}
	if d.Endpoint != "arn:aws:sagemaker:eu-west-1:123456789012:endpoint/amazon-falconlite" {
		t.Errorf("Endpoint = %q", d.Endpoint)
	}
	if d.ResponseStreamingSupported {
		t.Error("falcon-lite does not stream")
	}
}
