// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// Modality is a data type a model accepts or produces.
type Modality string

const (
	ModalityText      Modality = "TEXT"
	ModalityImage     Modality = "IMAGE"
	ModalityEmbedding Modality = "EMBEDDING"
)

// ModelInterface selects the calling convention downstream request handlers
// use when invoking the endpoint.
type ModelInterface string

const (
	// InterfaceLangChain is the plain text-generation convention:
	// {"inputs": ..., "parameters": ...} request bodies.
	InterfaceLangChain ModelInterface = "langchain"
	// InterfaceIdefics is the multimodal convention where image URLs are
	// inlined into the prompt text.
	InterfaceIdefics ModelInterface = "idefics"
)

// ModelDescriptor describes one deployed model endpoint. Descriptors are
// built once at provisioning time, collected into a list and serialized to
// the fleet parameter; they are never mutated afterwards.
//
// The JSON field names are a contract: downstream components discover
// available endpoints by reading the serialized parameter.
type ModelDescriptor struct {
	Name                       string         `json:"name"`
	Endpoint                   string         `json:"endpoint"`
	ResponseStreamingSupported bool           `json:"responseStreamingSupported"`
	InputModalities            []Modality     `json:"inputModalities"`
	OutputModalities           []Modality     `json:"outputModalities"`
	Interface                  ModelInterface `json:"interface"`
	RAGSupported               bool           `json:"ragSupported"`
}
