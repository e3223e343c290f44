// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package llm

import (
	"context"
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/rapidaai/streamrt/pkg/node"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

// llmParams configures a chat-completion node. System is optional; an
// empty Provider is rejected rather than defaulted, since silently
// picking a paid vendor on a missing manifest field would be a costly
// surprise.
type llmParams struct {
	Provider string `mapstructure:"provider" validate:"required"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	System   string `mapstructure:"system"`
}

// llmNode is a Text -> Text NodeExecutor over a hosted chat-completion
// API. It never sets metadata.capabilities.gpu on itself — GPU
// placement is a manifest-author concern (pkg/placement), and a
// network-bound hosted-API call never needs one.
type llmNode struct {
	node.UnimplementedStreaming
	completer completer
	system    string
	enc       *tiktoken.Tiktoken
}

// NewLLM constructs a chat-completion node for params.provider.
func NewLLM(rawParams map[string]interface{}) (node.Executor, error) {
	var p llmParams
	if err := node.DecodeParams(rawParams, &p); err != nil {
		return nil, err
	}
	c, err := newCompleter(p.Provider, p.Model, p.APIKey)
	if err != nil {
		return nil, err
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("llm: loading token encoder: %w", err)
	}
	return &llmNode{completer: c, system: p.System, enc: enc}, nil
}

func (n *llmNode) Initialize(ctx context.Context) error { return nil }

func (n *llmNode) Process(ctx context.Context, input runtimedata.RuntimeData) ([]runtimedata.RuntimeData, error) {
	if err := runtimedata.RequireKind(input, runtimedata.KindText); err != nil {
		return nil, err
	}
	prompt := string(input.Bytes())
	reply, err := n.completer.Complete(ctx, n.system, prompt)
	if err != nil {
		return nil, err
	}
	out := runtimedata.NewText(reply, input.Encoding, input.Language)
	out.Metadata["prompt_tokens"] = fmt.Sprintf("%d", len(n.enc.Encode(prompt, nil, nil)))
	out.Metadata["completion_tokens"] = fmt.Sprintf("%d", len(n.enc.Encode(reply, nil, nil)))
	return []runtimedata.RuntimeData{out}, nil
}

func (n *llmNode) Cleanup(ctx context.Context) error { return nil }

func (n *llmNode) Info() node.Info {
	return node.Info{
		NodeType:    "llm",
		Mode:        node.ModeUnary,
		InputKinds:  []runtimedata.Kind{runtimedata.KindText},
		OutputKinds: []runtimedata.Kind{runtimedata.KindText},
	}
}

// Register adds the llm node type to reg.
func Register(reg *node.Registry) {
	reg.Register("llm", NewLLM)
}
