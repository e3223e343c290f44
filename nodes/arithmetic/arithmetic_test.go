// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package arithmetic_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/streamrt/internal/config"
	"github.com/rapidaai/streamrt/nodes/arithmetic"
	"github.com/rapidaai/streamrt/pkg/node"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
	"github.com/rapidaai/streamrt/pkg/scheduler"
)

const threeNodeManifest = `{
  "version": "1",
  "nodes": [
    {"id": "multiply", "node_type": "multiply", "params": {"factor": 2}},
    {"id": "add", "node_type": "add", "params": {"offset": 10}},
    {"id": "sink", "node_type": "sink"}
  ],
  "connections": [
    {"from": "multiply", "to": "add"},
    {"from": "add", "to": "sink"}
  ]
}`

// TestThreeNodeUnaryArithmetic runs Multiply(x2) -> Add(+10) -> Sink over
// [5, 7, 3] as three separate unary calls, expecting [20, 24, 16].
func TestThreeNodeUnaryArithmetic(t *testing.T) {
	reg := node.NewRegistry()
	arithmetic.Register(reg)
	runner := scheduler.New(reg, nil, config.DefaultSchedulerConfig())

	inputs := []float64{5, 7, 3}
	expected := []float64{20, 24, 16}

	for i, in := range inputs {
		scalar, err := arithmetic.NewScalar(in)
		require.NoError(t, err)

		results, err := runner.ExecuteUnary(context.Background(), []byte(threeNodeManifest),
			map[string]runtimedata.RuntimeData{"multiply": scalar})
		require.NoError(t, err)

		out, ok := results["sink"]
		require.True(t, ok, "case %d: expected a result from sink", i)

		value, err := arithmetic.ScalarValue(out)
		require.NoError(t, err)
		require.Equal(t, expected[i], value)
	}
}

func TestPassThrough_IsIdentityForEveryVariant(t *testing.T) {
	reg := node.NewRegistry()
	arithmetic.Register(reg)
	ex, err := reg.Build("pass_through", nil)
	require.NoError(t, err)
	require.NoError(t, ex.Initialize(context.Background()))
	defer ex.Cleanup(context.Background())

	text := runtimedata.NewText("hello", "utf-8", "en")
	out, err := ex.Process(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "hello", string(out[0].Bytes()))

	scalar, err := arithmetic.NewScalar(42)
	require.NoError(t, err)
	out, err = ex.Process(context.Background(), scalar)
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestMultiply_ScalesInput(t *testing.T) {
	ex, err := arithmetic.NewMultiply(map[string]interface{}{"factor": 3.0})
	require.NoError(t, err)

	in, err := arithmetic.NewScalar(4)
	require.NoError(t, err)
	out, err := ex.Process(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 1)

	value, err := arithmetic.ScalarValue(out[0])
	require.NoError(t, err)
	require.Equal(t, 12.0, value)
}

func TestMultiply_RejectsMissingFactor(t *testing.T) {
	_, err := arithmetic.NewMultiply(map[string]interface{}{})
	require.Error(t, err)
}

func TestAdd_DefaultsOffsetToZero(t *testing.T) {
	ex, err := arithmetic.NewAdd(map[string]interface{}{})
	require.NoError(t, err)

	in, err := arithmetic.NewScalar(7)
	require.NoError(t, err)
	out, err := ex.Process(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 1)

	value, err := arithmetic.ScalarValue(out[0])
	require.NoError(t, err)
	require.Equal(t, 7.0, value)
}
