// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package audio provides the codec and resampling helpers Audio
// RuntimeData normalization and the WebRTC/telephony transports need:
// Opus encode/decode, G.711 mu-law/A-law encode/decode, and PCM sample
// rate conversion.
package audio

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"
)

// OpusEncoder wraps opus.v2's encoder for one fixed sample rate/channel
// configuration; one encoder lives for one outbound track.
type OpusEncoder struct {
	enc      *opus.Encoder
	channels int
}

// NewOpusEncoder constructs an encoder tuned for interactive voice
// (opus.AppVoIP), the application profile both the telephony and WebRTC
// front-ends target.
func NewOpusEncoder(sampleRate, channels int) (*OpusEncoder, error) {
	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	return &OpusEncoder{enc: enc, channels: channels}, nil
}

// Encode compresses one frame of interleaved PCM16 samples into an Opus
// packet. len(pcm) must be a valid Opus frame size (e.g. 20ms worth of
// samples at the encoder's configured rate).
func (e *OpusEncoder) Encode(pcm []int16) ([]byte, error) {
	out := make([]byte, 4000)
	n, err := e.enc.Encode(pcm, out)
	if err != nil {
		return nil, fmt.Errorf("opus encode failed: %w", err)
	}
	return out[:n], nil
}

// OpusDecoder wraps opus.v2's decoder for one fixed sample rate/channel
// configuration.
type OpusDecoder struct {
	dec        *opus.Decoder
	sampleRate int
	channels   int
}

// NewOpusDecoder constructs a decoder for sampleRate/channels.
func NewOpusDecoder(sampleRate, channels int) (*OpusDecoder, error) {
	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}
	return &OpusDecoder{dec: dec, sampleRate: sampleRate, channels: channels}, nil
}

// Decode expands one Opus packet into interleaved PCM16 samples, sized
// for up to maxFrameMillis of audio at the decoder's configured rate.
func (d *OpusDecoder) Decode(packet []byte, maxFrameMillis int) ([]int16, error) {
	maxSamples := d.sampleRate * maxFrameMillis / 1000 * d.channels
	pcm := make([]int16, maxSamples)
	n, err := d.dec.Decode(packet, pcm)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}
	return pcm[:n*d.channels], nil
}
