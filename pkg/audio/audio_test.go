// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineFrame(n int, amplitude int16) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(float64(amplitude) * math.Sin(float64(i)*0.2))
	}
	return out
}

func TestOpusEncodeDecodeRoundTrip(t *testing.T) {
	const sampleRate = 48000
	const channels = 1
	const frameMillis = 20
	frameSize := sampleRate * frameMillis / 1000

	enc, err := NewOpusEncoder(sampleRate, channels)
	require.NoError(t, err)
	dec, err := NewOpusDecoder(sampleRate, channels)
	require.NoError(t, err)

	pcm := sineFrame(frameSize, 10000)
	packet, err := enc.Encode(pcm)
	require.NoError(t, err)
	assert.NotEmpty(t, packet)

	decoded, err := dec.Decode(packet, frameMillis)
	require.NoError(t, err)
	assert.Len(t, decoded, frameSize)
}

func TestG711_UlawRoundTripIsLossyButBounded(t *testing.T) {
	pcm := sineFrame(160, 8000)
	encoded := EncodeUlaw(pcm)
	assert.Len(t, encoded, len(pcm))

	decoded := DecodeUlaw(encoded)
	require.Len(t, decoded, len(pcm))

	var maxDiff int
	for i := range pcm {
		diff := int(pcm[i]) - int(decoded[i])
		if diff < 0 {
			diff = -diff
		}
		if diff > maxDiff {
			maxDiff = diff
		}
	}
	assert.Less(t, maxDiff, 1000)
}

func TestG711_AlawRoundTripIsLossyButBounded(t *testing.T) {
	pcm := sineFrame(160, 8000)
	encoded := EncodeAlaw(pcm)
	decoded := DecodeAlaw(encoded)
	require.Len(t, decoded, len(pcm))
}

func TestResample_NoOpWhenRatesMatch(t *testing.T) {
	pcm := sineFrame(320, 5000)
	out, err := Resample(pcm, 16000, 16000, 1)
	require.NoError(t, err)
	assert.Equal(t, pcm, out)
}

func TestResample_UpsamplesToHigherRate(t *testing.T) {
	pcm := sineFrame(160, 5000) // 20ms @ 8kHz
	out, err := Resample(pcm, 8000, 16000, 1)
	require.NoError(t, err)
	assert.InDelta(t, len(pcm)*2, len(out), float64(len(pcm))*0.1)
}

func TestResample_RejectsZeroChannels(t *testing.T) {
	_, err := Resample(sineFrame(10, 100), 8000, 16000, 0)
	require.Error(t, err)
}
