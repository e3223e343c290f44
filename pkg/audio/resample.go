// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package audio

import (
	"fmt"

	resampler "github.com/tphakala/go-audio-resampler"
)

// Resample converts interleaved PCM16 samples from fromRate to toRate,
// used when a node's declared sample rate doesn't match what an
// upstream/downstream codec (Opus, G.711) expects. A no-op when the
// rates already match.
func Resample(pcm []int16, fromRate, toRate, channels int) ([]int16, error) {
	if fromRate == toRate {
		return pcm, nil
	}
	if channels < 1 {
		return nil, fmt.Errorf("resample: channels must be >= 1, got %d", channels)
	}

	r, err := resampler.New(fromRate, toRate, channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler %dHz->%dHz: %w", fromRate, toRate, err)
	}
	out, err := r.Resample(pcm)
	if err != nil {
		return nil, fmt.Errorf("resample failed: %w", err)
	}
	return out, nil
}
