// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package node_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/streamrt/pkg/node"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

type multiplyParams struct {
	Factor float64 `mapstructure:"factor" validate:"required,ne=0"`
}

type multiplyNode struct {
	node.UnimplementedStreaming
	factor float64
}

func newMultiplyNode(raw map[string]interface{}) (node.Executor, error) {
	var p multiplyParams
	if err := node.DecodeParams(raw, &p); err != nil {
		return nil, err
	}
	return &multiplyNode{factor: p.Factor}, nil
}

func (n *multiplyNode) Initialize(ctx context.Context) error { return nil }

func (n *multiplyNode) Process(ctx context.Context, in runtimedata.RuntimeData) ([]runtimedata.RuntimeData, error) {
	if err := runtimedata.RequireKind(in, runtimedata.KindNumpy); err != nil {
		return nil, err
	}
	return []runtimedata.RuntimeData{in}, nil
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

func TestRegistry_BuildSucceeds(t *testing.T) {
	r := node.NewRegistry()
	r.Register("multiply", newMultiplyNode)

	ex, err := r.Build("multiply", map[string]interface{}{"factor": 2.0})
	require.NoError(t, err)
	assert.Equal(t, "multiply", ex.Info().NodeType)
}

func TestRegistry_BuildEagerlyValidatesParams(t *testing.T) {
	r := node.NewRegistry()
	r.Register("multiply", newMultiplyNode)

	_, err := r.Build("multiply", map[string]interface{}{})
	require.Error(t, err)
}

func TestRegistry_UnknownNodeType(t *testing.T) {
	r := node.NewRegistry()
	_, err := r.Build("does-not-exist", nil)
	require.Error(t, err)
	var unt *node.UnknownNodeType
	assert.ErrorAs(t, err, &unt)
}

func TestRegistry_RegisterPanicsOnDuplicate(t *testing.T) {
	r := node.NewRegistry()
	r.Register("multiply", newMultiplyNode)
	assert.Panics(t, func() {
		r.Register("multiply", newMultiplyNode)
	})
}

func TestRegistry_BuildAcceptsVersionPinnedNodeType(t *testing.T) {
	r := node.NewRegistry()
	r.Register("multiply", newMultiplyNode)

	ex, err := r.Build("multiply@vrsn_7", map[string]interface{}{"factor": 2.0})
	require.NoError(t, err)
	assert.Equal(t, "multiply", ex.Info().NodeType)
}

func TestRegistry_UnknownVersionPinnedNodeTypeReportsBaseType(t *testing.T) {
	r := node.NewRegistry()
	_, err := r.Build("does-not-exist@vrsn_7", nil)
	require.Error(t, err)
	var unt *node.UnknownNodeType
	require.ErrorAs(t, err, &unt)
	assert.Equal(t, "does-not-exist", unt.NodeType)
}

func TestRegistry_RegisterWithLockReplaces(t *testing.T) {
	r := node.NewRegistry()
	r.Register("multiply", newMultiplyNode)
	r.RegisterWithLock("multiply", func(raw map[string]interface{}) (node.Executor, error) {
		return &multiplyNode{factor: 99}, nil
	})

	ex, err := r.Build("multiply", map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, float64(99), ex.(*multiplyNode).factor)
}
