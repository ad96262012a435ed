// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog holds the fixed definitions of the supported self-hosted
// models. Each enabled kind maps to exactly one endpoint spec with a
// deterministic name, a serving container and fixed hyperparameters.
package catalog

import (
	"fmt"

	"github.com/chatforge/modelfleet/pkg/core/config"
	"github.com/chatforge/modelfleet/pkg/core/schema"
)

// Kind identifies a supported self-hosted model.
type Kind string

const (
	KindFalconLite          Kind = "falcon-lite"
	KindMistral7BInstruct   Kind = "mistral-7b-instruct"
	KindMixtral8x7BInstruct Kind = "mixtral-8x7b-instruct"
	KindLlama2Chat13B       Kind = "llama2-13b-chat"
	KindIdefics9B           Kind = "idefics-9b"
	KindIdefics80B          Kind = "idefics-80b"
)

// EndpointSpec is the full definition of one managed inference endpoint.
type EndpointSpec struct {
	Kind    Kind
	ModelID string // e.g. "sagemaker.amazon-FalconLite"
	Name    string // derived from ModelID, valid as an endpoint name

	Image                 string // serving container, resolved per region
	Environment           map[string]string
	InstanceType          string
	InstanceCount         int32
	StartupTimeoutSeconds int32

	InputModalities  []schema.Modality
	OutputModalities []schema.Modality
	Interface        schema.ModelInterface
	RAGSupported     bool
}

// Descriptor returns the serializable record for this spec. The endpoint
// argument is the ARN of the deployed endpoint (or the derived name when
// planning without deploying).
func (s EndpointSpec) Descriptor(endpoint string) schema.ModelDescriptor {
	return schema.ModelDescriptor{
		Name:     s.Name,
		Endpoint: endpoint,
		// the TGI invocation contract here is request/response only
		ResponseStreamingSupported: false,
		InputModalities:            s.InputModalities,
		OutputModalities:           s.OutputModalities,
		Interface:                  s.Interface,
		RAGSupported:               s.RAGSupported,
	}
}

type definition struct {
	modelID               string
	hfModelID             string
	quantize              string
	numGPUs               string
	instanceType          string
	startupTimeoutSeconds int32
	extraEnv              map[string]string
	inputModalities       []schema.Modality
	iface                 schema.ModelInterface
	ragSupported          bool
}

var text = []schema.Modality{schema.ModalityText}

// definitions is the catalog proper. Hyperparameters are fixed per kind;
// only the instance type is overridable through configuration.
var definitions = map[Kind]definition{
	KindFalconLite: {
		modelID:               "sagemaker.amazon-FalconLite",
		hfModelID:             "amazon/FalconLite",
		quantize:              "gptq",
		numGPUs:               "4",
		instanceType:          "ml.g5.12xlarge",
		startupTimeoutSeconds: 600,
		extraEnv: map[string]string{
			"MAX_INPUT_LENGTH": "12000",
			"MAX_TOTAL_TOKENS": "12001",
		},
		inputModalities: text,
		iface:           schema.InterfaceLangChain,
		ragSupported:    true,
	},
	KindMistral7BInstruct: {
		modelID:               "sagemaker.mistralai-Mistral-7B-Instruct-v0.1",
		hfModelID:             "mistralai/Mistral-7B-Instruct-v0.1",
		numGPUs:               "1",
		instanceType:          "ml.g5.2xlarge",
		startupTimeoutSeconds: 300,
		extraEnv: map[string]string{
			"MAX_INPUT_LENGTH": "2048",
			"MAX_TOTAL_TOKENS": "4096",
		},
		inputModalities: text,
		iface:           schema.InterfaceLangChain,
		ragSupported:    true,
	},
	KindMixtral8x7BInstruct: {
		modelID:               "sagemaker.mistralai-Mixtral-8x7B-Instruct-v0.1",
		hfModelID:             "mistralai/Mixtral-8x7B-Instruct-v0.1",
		numGPUs:               "8",
		instanceType:          "ml.g5.48xlarge",
		startupTimeoutSeconds: 900,
		extraEnv: map[string]string{
			"MAX_INPUT_LENGTH": "24576",
			"MAX_TOTAL_TOKENS": "32768",
		},
		inputModalities: text,
		iface:           schema.InterfaceLangChain,
		ragSupported:    true,
	},
	KindLlama2Chat13B: {
		modelID:               "sagemaker.meta-LLama2-13b-chat",
		hfModelID:             "meta-llama/Llama-2-13b-chat-hf",
		numGPUs:               "4",
		instanceType:          "ml.g5.12xlarge",
		startupTimeoutSeconds: 600,
		extraEnv: map[string]string{
			"MAX_INPUT_LENGTH": "2048",
			"MAX_TOTAL_TOKENS": "4096",
		},
		inputModalities: text,
		iface:           schema.InterfaceLangChain,
		ragSupported:    true,
	},
	KindIdefics9B: {
		modelID:               "sagemaker.HuggingFaceM4-idefics-9b-instruct",
		hfModelID:             "HuggingFaceM4/idefics-9b-instruct",
		numGPUs:               "4",
		instanceType:          "ml.g5.12xlarge",
		startupTimeoutSeconds: 600,
		extraEnv: map[string]string{
			"MAX_INPUT_LENGTH":       "1024",
			"MAX_TOTAL_TOKENS":       "2048",
			"MAX_BATCH_TOTAL_TOKENS": "8192",
		},
		inputModalities: []schema.Modality{schema.ModalityText, schema.ModalityImage},
		iface:           schema.InterfaceIdefics,
	},
	KindIdefics80B: {
		modelID:               "sagemaker.HuggingFaceM4-idefics-80b-instruct",
		hfModelID:             "HuggingFaceM4/idefics-80b-instruct",
		quantize:              "bitsandbytes",
		numGPUs:               "8",
		instanceType:          "ml.g5.48xlarge",
		startupTimeoutSeconds: 900,
		extraEnv: map[string]string{
			"MAX_INPUT_LENGTH":       "1024",
			"MAX_TOTAL_TOKENS":       "2048",
			"MAX_BATCH_TOTAL_TOKENS": "8192",
		},
		inputModalities: []schema.Modality{schema.ModalityText, schema.ModalityImage},
		iface:           schema.InterfaceIdefics,
	},
}

// Kinds returns the supported model kinds in catalog order.
func Kinds() []Kind {
	return []Kind{
		KindFalconLite,
		KindMistral7BInstruct,
		KindMixtral8x7BInstruct,
		KindLlama2Chat13B,
		KindIdefics9B,
		KindIdefics80B,
	}
}

// Build returns one endpoint spec per model kind enabled in the
// configuration, in the order listed there. Unknown kinds are an error.
func Build(cfg *config.Config) ([]EndpointSpec, error) {
	specs := make([]EndpointSpec, 0, len(cfg.Fleet.Models))
	for _, name := range cfg.Fleet.Models {
		kind := Kind(name)
		def, ok := definitions[kind]
		if !ok {
			return nil, fmt.Errorf("unknown model kind %q (supported: %v)", name, Kinds())
		}

		instanceType := def.instanceType
		if override := cfg.Fleet.InstanceTypes[name]; override != "" {
			instanceType = override
		}

		env := map[string]string{
			"HF_MODEL_ID": def.hfModelID,
			"SM_NUM_GPUS": def.numGPUs,
		}
		if def.quantize != "" {
			env["HF_MODEL_QUANTIZE"] = def.quantize
		}
		for k, v := range def.extraEnv {
			env[k] = v
		}

		specs = append(specs, EndpointSpec{
			Kind:                  kind,
			ModelID:               def.modelID,
			Name:                  DeriveName(def.modelID),
			Image:                 tgiImage(cfg.AWS.Region),
			Environment:           env,
			InstanceType:          instanceType,
			InstanceCount:         1,
			StartupTimeoutSeconds: def.startupTimeoutSeconds,
			InputModalities:       def.inputModalities,
			OutputModalities:      text,
			Interface:             def.iface,
			RAGSupported:          def.ragSupported,
		})
	}
	return specs, nil
}

// tgiImage resolves the text-generation-inference deep learning container
// for the given region. All current regions share the DLC registry account.
func tgiImage(region string) string {
	return fmt.Sprintf(
		"763104351884.dkr.ecr.%s.amazonaws.com/huggingface-pytorch-tgi-inference:2.0.1-tgi1.1.0-gpu-py39-cu118-ubuntu20.04",
		region,
	)
}
