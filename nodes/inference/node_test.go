// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package inference_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/streamrt/nodes/inference"
	"github.com/rapidaai/streamrt/pkg/node"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

func TestNewInference_RequiresModel(t *testing.T) {
	_, err := inference.NewInference(map[string]interface{}{})
	require.Error(t, err)
}

func TestNewInference_RegistersAsHostedInference(t *testing.T) {
	reg := node.NewRegistry()
	inference.Register(reg)
	ex, err := reg.Build("hosted_inference", map[string]interface{}{"model": "owner/model:version"})
	require.NoError(t, err)
	require.Equal(t, "hosted_inference", ex.Info().NodeType)
}

func TestInferenceNode_RejectsNonTextInput(t *testing.T) {
	ex, err := inference.NewInference(map[string]interface{}{"model": "owner/model:version"})
	require.NoError(t, err)

	numpy, err := runtimedata.NewNumpy([]byte{1, 2, 3, 4}, []uint32{4}, []int64{1}, "uint8", true, true)
	require.NoError(t, err)
	_, err = ex.Process(context.Background(), numpy)
	require.Error(t, err)
}
