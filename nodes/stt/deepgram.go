// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package stt

import (
	"context"
	"fmt"

	"github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	prerecorded "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/prerecorded"

	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

type deepgramTranscriber struct {
	language string
	apiKey   string
}

func newDeepgramTranscriber(language, apiKey string) *deepgramTranscriber {
	if language == "" {
		language = "en"
	}
	return &deepgramTranscriber{language: language, apiKey: apiKey}
}

func (d *deepgramTranscriber) Transcribe(ctx context.Context, pcm []byte, sampleRate, channels uint32, format runtimedata.SampleFormat) (string, error) {
	if format != runtimedata.SampleFormatI16LE {
		return "", fmt.Errorf("stt: deepgram transcriber requires i16le PCM, got %q", format)
	}

	client := prerecorded.NewWithDefaults(d.apiKey)

	options := interfaces.PreRecordedTranscriptionOptions{
		Model:    "nova-2",
		Language: d.language,
		Encoding: "linear16",
		SampleRate: int(sampleRate),
		Channels:   int(channels),
	}

	resp, err := client.FromStream(ctx, bytesReader(pcm), options)
	if err != nil {
		return "", fmt.Errorf("stt: deepgram transcribe: %w", err)
	}
	if len(resp.Results.Channels) == 0 || len(resp.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	return resp.Results.Channels[0].Alternatives[0].Transcript, nil
}
