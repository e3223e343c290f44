// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package arithmetic

import (
	"context"

	"github.com/rapidaai/streamrt/pkg/node"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

// passThroughNode forwards its input untouched: PassThrough(x) = x for
// every variant.
type passThroughNode struct {
	node.UnimplementedStreaming
}

// NewPassThrough constructs a node that returns its input unchanged,
// accepting any RuntimeData kind.
func NewPassThrough(rawParams map[string]interface{}) (node.Executor, error) {
	return &passThroughNode{}, nil
}

func (n *passThroughNode) Initialize(ctx context.Context) error { return nil }

func (n *passThroughNode) Process(ctx context.Context, input runtimedata.RuntimeData) ([]runtimedata.RuntimeData, error) {
	return []runtimedata.RuntimeData{input}, nil
}

func (n *passThroughNode) Cleanup(ctx context.Context) error { return nil }

func (n *passThroughNode) Info() node.Info {
	return node.Info{NodeType: "pass_through", Mode: node.ModeUnary}
}

// sinkNode is a terminal node with no transformation; the scheduler
// routes its output to the session's external output edge (or the unary
// results map) because it has no outgoing connections. Kept as an
// explicit node_type so manifests can name a terminal node rather than
// relying on graph shape alone.
type sinkNode struct {
	node.UnimplementedStreaming
}

// NewSink constructs a terminal node that forwards its input unchanged.
func NewSink(rawParams map[string]interface{}) (node.Executor, error) {
	return &sinkNode{}, nil
}

func (n *sinkNode) Initialize(ctx context.Context) error { return nil }

func (n *sinkNode) Process(ctx context.Context, input runtimedata.RuntimeData) ([]runtimedata.RuntimeData, error) {
	return []runtimedata.RuntimeData{input}, nil
}

func (n *sinkNode) Cleanup(ctx context.Context) error { return nil }

func (n *sinkNode) Info() node.Info {
	return node.Info{NodeType: "sink", Mode: node.ModeUnary}
}
