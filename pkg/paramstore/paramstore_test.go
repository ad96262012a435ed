// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package paramstore_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/chatforge/modelfleet/pkg/core/schema"
	"github.com/chatforge/modelfleet/pkg/paramstore"
	"github.com/chatforge/modelfleet/pkg/paramstore/memory"
)

func TestPublishModels_WireFormat(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	models := []schema.ModelDescriptor{{
		Name:                       "amazon-FalconLite",
		Endpoint:                   "arn:aws:sagemaker:us-east-1:123456789012:endpoint/amazon-falconlite",
		ResponseStreamingSupported: false,
		InputModalities:            []schema.Modality{schema.ModalityText},
		OutputModalities:           []schema.Modality{schema.ModalityText},
		Interface:                  schema.InterfaceLangChain,
		RAGSupported:               true,
	}}

	if err := paramstore.PublishModels(ctx, store, "/fleet/models", models); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := store.Get(ctx, "/fleet/models")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Downstream readers depend on these exact key names.
	var decoded []map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("parameter is not a JSON array: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 descriptor, got %d", len(decoded))
	}
	for _, key := range []string{
		"name", "endpoint", "responseStreamingSupported",
		"inputModalities", "outputModalities", "interface", "ragSupported",
	} {
		if _, ok := decoded[0][key]; !ok {
			t.Errorf("serialized descriptor missing key %q; got %s", key, raw)
		}
	}
	if decoded[0]["name"] != "amazon-FalconLite" {
		t.Errorf("name = %v, want amazon-FalconLite", decoded[0]["name"])
	}
	if decoded[0]["interface"] != "langchain" {
		t.Errorf("interface = %v, want langchain", decoded[0]["interface"])
	}
}

func TestPublishModels_EmptyList(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	if err := paramstore.PublishModels(ctx, store, "/fleet/models", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := store.Get(ctx, "/fleet/models")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(raw) != "[]" {
		t.Errorf("empty fleet must serialize as [], got %q", raw)
	}
}

func TestReadModels_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	models := []schema.ModelDescriptor{
		{Name: "a", Endpoint: "arn:a", Interface: schema.InterfaceLangChain},
		{Name: "b", Endpoint: "arn:b", Interface: schema.InterfaceIdefics},
	}
	if err := paramstore.PublishModels(ctx, store, "/p", models); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := paramstore.ReadModels(ctx, store, "/p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Name != "a" || got[1].Interface != schema.InterfaceIdefics {
		t.Errorf("ReadModels = %+v", got)
	}
}

func TestReadModels_Missing(t *testing.T) {
	_, err := paramstore.ReadModels(context.Background(), memory.New(), "/missing")
	if err == nil {
		t.Fatal("expected error for missing parameter")
	}
}
