// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package tts_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/streamrt/nodes/tts"
	"github.com/rapidaai/streamrt/pkg/node"
)

func TestTTS_RegistersAsTTS(t *testing.T) {
	reg := node.NewRegistry()
	tts.Register(reg)
	ex, err := reg.Build("tts", nil)
	require.NoError(t, err)
	require.Equal(t, "tts", ex.Info().NodeType)
}

func TestNewTTS_BuildsWithNilParams(t *testing.T) {
	ex, err := tts.NewTTS(nil)
	require.NoError(t, err)
	require.Equal(t, "tts", ex.Info().NodeType)
}
