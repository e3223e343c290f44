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

// multiplyParams configures a Multiply node's factor.
type multiplyParams struct {
	Factor float64 `mapstructure:"factor" validate:"required"`
}

type multiplyNode struct {
	node.UnimplementedStreaming
	factor float64
}

// NewMultiply constructs a Multiply node scaling every input scalar by
// params.factor.
func NewMultiply(rawParams map[string]interface{}) (node.Executor, error) {
	var p multiplyParams
	if err := node.DecodeParams(rawParams, &p); err != nil {
		return nil, err
	}
	return &multiplyNode{factor: p.Factor}, nil
}

func (n *multiplyNode) Initialize(ctx context.Context) error { return nil }

func (n *multiplyNode) Process(ctx context.Context, input runtimedata.RuntimeData) ([]runtimedata.RuntimeData, error) {
	v, err := scalarValue(input)
	if err != nil {
		return nil, err
	}
	out, err := NewScalar(v * n.factor)
	if err != nil {
		return nil, err
	}
	return []runtimedata.RuntimeData{out}, nil
}

func (n *multiplyNode) Cleanup(ctx context.Context) error { return nil }

func (n *multiplyNode) Info() node.Info {
	return node.Info{
		NodeType:    "multiply",
		Mode:        node.ModeUnary,
		InputKinds:  []runtimedata.Kind{runtimedata.KindNumpy},
		OutputKinds: []runtimedata.Kind{runtimedata.KindNumpy},
	}
}
