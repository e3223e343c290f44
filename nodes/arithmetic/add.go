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

// addParams configures an Add node's offset.
type addParams struct {
	Offset float64 `mapstructure:"offset"`
}

type addNode struct {
	node.UnimplementedStreaming
	offset float64
}

// NewAdd constructs an Add node shifting every input scalar by
// params.offset.
func NewAdd(rawParams map[string]interface{}) (node.Executor, error) {
	var p addParams
	if err := node.DecodeParams(rawParams, &p); err != nil {
		return nil, err
	}
	return &addNode{offset: p.Offset}, nil
}

func (n *addNode) Initialize(ctx context.Context) error { return nil }

func (n *addNode) Process(ctx context.Context, input runtimedata.RuntimeData) ([]runtimedata.RuntimeData, error) {
	v, err := scalarValue(input)
	if err != nil {
		return nil, err
	}
	out, err := NewScalar(v + n.offset)
	if err != nil {
		return nil, err
	}
	return []runtimedata.RuntimeData{out}, nil
}

func (n *addNode) Cleanup(ctx context.Context) error { return nil }

func (n *addNode) Info() node.Info {
	return node.Info{
		NodeType:    "add",
		Mode:        node.ModeUnary,
		InputKinds:  []runtimedata.Kind{runtimedata.KindNumpy},
		OutputKinds: []runtimedata.Kind{runtimedata.KindNumpy},
	}
}
