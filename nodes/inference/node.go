// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package inference implements a generic hosted-model NodeExecutor
// wrapping Replicate, typically placed Remote/Docker. Unlike nodes/llm's
// fixed chat
// shape, a Replicate model's input/output schema varies per model, so
// this node passes a JSON object straight through to replicate-go's
// generic Run call rather than projecting onto a typed request.
package inference

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/replicate/replicate-go"

	"github.com/rapidaai/streamrt/pkg/node"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

// inferenceParams names the model version to run. Manifests placing this
// node type should set metadata.execution.placement to "remote" (see
// pkg/placement) since the call is a network-bound hosted inference
// request, never a local compute path.
type inferenceParams struct {
	Model  string `mapstructure:"model" validate:"required"`
	APIKey string `mapstructure:"api_key"`
}

type inferenceNode struct {
	node.UnimplementedStreaming
	model  string
	apiKey string
}

// NewInference constructs a node that runs params.model on Replicate.
func NewInference(rawParams map[string]interface{}) (node.Executor, error) {
	var p inferenceParams
	if err := node.DecodeParams(rawParams, &p); err != nil {
		return nil, err
	}
	return &inferenceNode{model: p.Model, apiKey: p.APIKey}, nil
}

func (n *inferenceNode) Initialize(ctx context.Context) error { return nil }

func (n *inferenceNode) Process(ctx context.Context, input runtimedata.RuntimeData) ([]runtimedata.RuntimeData, error) {
	if err := runtimedata.RequireKind(input, runtimedata.KindText); err != nil {
		return nil, err
	}

	var inputFields replicate.PredictionInput
	if raw := input.Bytes(); len(raw) > 0 {
		if err := json.Unmarshal(raw, &inputFields); err != nil {
			return nil, fmt.Errorf("inference: decoding model input: %w", err)
		}
	}

	opts := []replicate.ClientOption{}
	if n.apiKey != "" {
		opts = append(opts, replicate.WithToken(n.apiKey))
	}
	client, err := replicate.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("inference: replicate client: %w", err)
	}

	output, err := client.Run(ctx, n.model, inputFields, nil)
	if err != nil {
		return nil, fmt.Errorf("inference: replicate run %q: %w", n.model, err)
	}

	encoded, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("inference: encoding model output: %w", err)
	}
	out := runtimedata.NewText(string(encoded), "utf-8", input.Language)
	return []runtimedata.RuntimeData{out}, nil
}

func (n *inferenceNode) Cleanup(ctx context.Context) error { return nil }

func (n *inferenceNode) Info() node.Info {
	return node.Info{
		NodeType:    "hosted_inference",
		Mode:        node.ModeUnary,
		InputKinds:  []runtimedata.Kind{runtimedata.KindText},
		OutputKinds: []runtimedata.Kind{runtimedata.KindText},
	}
}

// Register adds the hosted_inference node type to reg.
func Register(reg *node.Registry) {
	reg.Register("hosted_inference", NewInference)
}
