// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package stt implements Audio -> Text NodeExecutors wrapping hosted
// speech-to-text providers. Provider selection follows the same pattern
// as nodes/llm: one lowercase-normalized switch dispatching to a small
// vendor-specific adapter.
package stt

import (
	"context"
	"fmt"
	"strings"

	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

// transcriber is the minimal contract every provider adapter satisfies:
// turn one utterance's raw PCM into text.
type transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate, channels uint32, format runtimedata.SampleFormat) (string, error)
}

func newTranscriber(provider, language, apiKeyOrRegion, apiKey string) (transcriber, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "google":
		return newGoogleTranscriber(language), nil
	case "azure":
		return newAzureTranscriber(language, apiKeyOrRegion, apiKey), nil
	case "deepgram":
		return newDeepgramTranscriber(language, apiKey), nil
	default:
		return nil, fmt.Errorf("stt: unsupported provider %q", provider)
	}
}
