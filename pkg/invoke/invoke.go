// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package invoke sends smoke-test prompts to deployed endpoints. The TGI
// containers speak the {"inputs", "parameters"} dialect; a content handler
// per model interface shapes the request and unwraps the response.
package invoke

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"

	"github.com/chatforge/modelfleet/pkg/core/schema"
)

// Parameters are the generation knobs forwarded to the container.
type Parameters struct {
	Temperature    float64 `json:"temperature"`
	MaxNewTokens   int     `json:"max_new_tokens"`
	DoSample       bool    `json:"do_sample"`
	ReturnFullText bool    `json:"return_full_text"`
	TypicalP       float64 `json:"typical_p"`
	UseCache       bool    `json:"use_cache"`
	Seed           *int64  `json:"seed"`
	TopK           int     `json:"top_k"`
	TopP           float64 `json:"top_p"`
}

// DefaultParameters returns the generation defaults used for smoke tests.
func DefaultParameters() Parameters {
	return Parameters{
		Temperature:    0.9,
		MaxNewTokens:   10000,
		DoSample:       true,
		ReturnFullText: false,
		TypicalP:       0.2,
		UseCache:       true,
		TopK:           50,
		TopP:           0.95,
	}
}

// ContentHandler shapes requests and unwraps responses for one model
// interface.
type ContentHandler interface {
	ContentType() string
	TransformInput(prompt string, params Parameters) ([]byte, error)
	TransformOutput(body []byte) (string, error)
}

type request struct {
	Inputs     string     `json:"inputs"`
	Parameters Parameters `json:"parameters"`
}

type generation struct {
	GeneratedText string `json:"generated_text"`
}

// TGIHandler implements the plain text-generation convention.
type TGIHandler struct{}

func (TGIHandler) ContentType() string { return "application/json" }

func (TGIHandler) TransformInput(prompt string, params Parameters) ([]byte, error) {
	return json.Marshal(request{Inputs: prompt, Parameters: params})
}

func (TGIHandler) TransformOutput(body []byte) (string, error) {
	var out []generation
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out) == 0 {
		return "", fmt.Errorf("empty response")
	}
	// Some chat-tuned containers prefix their turns.
	return strings.TrimPrefix(out[0].GeneratedText, "Bot: "), nil
}

// IdeficsHandler implements the multimodal convention: image URLs are
// inlined into the prompt as markdown references.
type IdeficsHandler struct {
	ImageURLs []string
}

func (IdeficsHandler) ContentType() string { return "application/json" }

func (h IdeficsHandler) TransformInput(prompt string, params Parameters) ([]byte, error) {
	var b strings.Builder
	b.WriteString("User:")
	for _, url := range h.ImageURLs {
		b.WriteString("![](")
		b.WriteString(url)
		b.WriteString(")")
	}
	b.WriteString(prompt)
	b.WriteString("<end_of_utterance>\nAssistant:")
	return json.Marshal(request{Inputs: b.String(), Parameters: params})
}

func (IdeficsHandler) TransformOutput(body []byte) (string, error) {
	var out []generation
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out) == 0 {
		return "", fmt.Errorf("empty response")
	}
	text := out[0].GeneratedText
	if idx := strings.LastIndex(text, "Assistant:"); idx >= 0 {
		text = text[idx+len("Assistant:"):]
	}
	return strings.TrimSpace(text), nil
}

// HandlerFor returns the content handler for a model interface.
func HandlerFor(iface schema.ModelInterface, imageURLs []string) (ContentHandler, error) {
	switch iface {
	case schema.InterfaceLangChain:
		return TGIHandler{}, nil
	case schema.InterfaceIdefics:
		return IdeficsHandler{ImageURLs: imageURLs}, nil
	default:
		return nil, fmt.Errorf("no content handler for interface %q", iface)
	}
}

// API is the subset of the SageMaker runtime client used by Client.
type API interface {
	InvokeEndpoint(ctx context.Context, input *sagemakerruntime.InvokeEndpointInput, optFns ...func(*sagemakerruntime.Options)) (*sagemakerruntime.InvokeEndpointOutput, error)
}

// Options configures the client.
type Options struct {
	Region   string
	Endpoint string // custom endpoint for LocalStack compatibility
}

// Client invokes deployed endpoints.
type Client struct {
	client API
}

// New creates a Client with a real SageMaker runtime client.
func New(ctx context.Context, opts Options) (*Client, error) {
	optFns := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	rtOpts := []func(*sagemakerruntime.Options){}
	if opts.Endpoint != "" {
		rtOpts = append(rtOpts, func(o *sagemakerruntime.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		})
	}

	return &Client{client: sagemakerruntime.NewFromConfig(cfg, rtOpts...)}, nil
}

// NewWithClient creates a Client around an existing client. Used in tests.
func NewWithClient(client API) *Client {
	return &Client{client: client}
}

// Invoke sends the prompt through the handler and returns the generated
// text.
func (c *Client) Invoke(ctx context.Context, endpointName, prompt string, params Parameters, handler ContentHandler) (string, error) {
	body, err := handler.TransformInput(prompt, params)
	if err != nil {
		return "", fmt.Errorf("transform input: %w", err)
	}

	out, err := c.client.InvokeEndpoint(ctx, &sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(endpointName),
		ContentType:  aws.String(handler.ContentType()),
		Accept:       aws.String(handler.ContentType()),
		Body:         body,
	})
	if err != nil {
		return "", fmt.Errorf("invoke endpoint %s: %w", endpointName, err)
	}

	text, err := handler.TransformOutput(out.Body)
	if err != nil {
		return "", fmt.Errorf("endpoint %s: %w", endpointName, err)
	}
	return text, nil
}
