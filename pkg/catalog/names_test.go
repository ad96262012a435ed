// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"strings"
	"testing"
)

func TestDeriveName(t *testing.T) {
	tests := []struct {
		modelID string
		want    string
	}{
		{"sagemaker.amazon-FalconLite", "amazon-FalconLite"},
		{"sagemaker.mistralai-Mistral-7B-Instruct-v0.1", "mistralai-Mistral-7B-Instruct-v0-1"},
		{"sagemaker.HuggingFaceM4-idefics-9b-instruct", "HuggingFaceM4-idefics-9b-instruct"},
		{"vendor/model@1.0", "vendor-model-1-0"},
		{"..weird..", "weird"},
	}

	for _, tt := range tests {
		if got := DeriveName(tt.modelID); got != tt.want {
			t.Errorf("DeriveName(%q) = %q, want %q", tt.modelID, got, tt.want)
		}
	}
}

func TestDeriveName_Deterministic(t *testing.T) {
	a := DeriveName("sagemaker.amazon-FalconLite")
	b := DeriveName("sagemaker.amazon-FalconLite")
	if a != b {
		t.Errorf("derivation not deterministic: %q vs %q", a, b)
	}
}

func TestDeriveName_LengthCap(t *testing.T) {
	long := "sagemaker." + strings.Repeat("a", 100)
	got := DeriveName(long)
	if len(got) > maxEndpointNameLen {
		t.Errorf("len = %d, want <= %d", len(got), maxEndpointNameLen)
	}
}
