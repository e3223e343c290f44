// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package formatconvert_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/streamrt/nodes/formatconvert"
	"github.com/rapidaai/streamrt/pkg/node"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

func pcmSamples(values ...int16) []byte {
	buf := make([]byte, 0, len(values)*2)
	for _, v := range values {
		buf = append(buf, byte(v), byte(v>>8))
	}
	return buf
}

// TestFormatConverter_AudioToNumpyToAudioIsIdentity exercises the
// round-trip law: converting Audio to Numpy and back
// must reproduce the original sample rate, channel count, format, and
// bytes exactly.
func TestFormatConverter_AudioToNumpyToAudioIsIdentity(t *testing.T) {
	ex, err := formatconvert.New(nil)
	require.NoError(t, err)
	require.NoError(t, ex.Initialize(context.Background()))
	defer ex.Cleanup(context.Background())

	raw := pcmSamples(100, -200, 300, -400)
	audio, err := runtimedata.NewAudio(raw, 16000, 2, runtimedata.SampleFormatI16LE)
	require.NoError(t, err)

	toNumpy, err := ex.Process(context.Background(), audio)
	require.NoError(t, err)
	require.Len(t, toNumpy, 1)
	require.Equal(t, runtimedata.KindNumpy, toNumpy[0].Kind())

	back, err := ex.Process(context.Background(), toNumpy[0])
	require.NoError(t, err)
	require.Len(t, back, 1)

	got := back[0]
	require.Equal(t, runtimedata.KindAudio, got.Kind())
	require.Equal(t, uint32(16000), got.SampleRate)
	require.Equal(t, uint32(2), got.Channels)
	require.Equal(t, runtimedata.SampleFormatI16LE, got.SampleFormat)
	require.Equal(t, raw, got.Bytes())
}

func TestFormatConverter_AudioToNumpyPreservesByteLength(t *testing.T) {
	ex, err := formatconvert.New(nil)
	require.NoError(t, err)

	raw := pcmSamples(1, 2, 3)
	audio, err := runtimedata.NewAudio(raw, 48000, 1, runtimedata.SampleFormatI16LE)
	require.NoError(t, err)

	out, err := ex.Process(context.Background(), audio)
	require.NoError(t, err)
	require.Len(t, out, 1)

	desc, err := out[0].IntoNumpyDescriptor()
	require.NoError(t, err)
	require.Equal(t, "int16", desc.Dtype)
	require.Equal(t, raw, out[0].Bytes())
}

func TestFormatConverter_NumpyToAudioUsesConfiguredParams(t *testing.T) {
	ex, err := formatconvert.New(map[string]interface{}{
		"sample_rate": float64(8000),
		"channels":    float64(1),
	})
	require.NoError(t, err)

	raw := pcmSamples(7, 8, 9)
	numpy, err := runtimedata.NewNumpy(raw, []uint32{uint32(len(raw) / 2)}, []int64{2}, "int16", true, true)
	require.NoError(t, err)

	out, err := ex.Process(context.Background(), numpy)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, uint32(8000), out[0].SampleRate)
	require.Equal(t, uint32(1), out[0].Channels)
	require.Equal(t, raw, out[0].Bytes())
}

func TestFormatConverter_RejectsUnsupportedKind(t *testing.T) {
	ex, err := formatconvert.New(nil)
	require.NoError(t, err)

	text := runtimedata.NewText("hi", "utf-8", "en")
	_, err = ex.Process(context.Background(), text)
	require.Error(t, err)
}

func TestFormatConverter_RegistersAsFormatConverter(t *testing.T) {
	reg := node.NewRegistry()
	formatconvert.Register(reg)
	ex, err := reg.Build("format_converter", nil)
	require.NoError(t, err)
	require.Equal(t, "format_converter", ex.Info().NodeType)
}
