// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package stt

import (
	"context"
	"fmt"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

type googleTranscriber struct {
	language string
}

func newGoogleTranscriber(language string) *googleTranscriber {
	if language == "" {
		language = "en-US"
	}
	return &googleTranscriber{language: language}
}

func (g *googleTranscriber) Transcribe(ctx context.Context, pcm []byte, sampleRate, channels uint32, format runtimedata.SampleFormat) (string, error) {
	encoding, err := googleEncodingFor(format)
	if err != nil {
		return "", err
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("stt: google speech client: %w", err)
	}
	defer client.Close()

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        encoding,
			SampleRateHertz: int32(sampleRate),
			AudioChannelCount: int32(channels),
			LanguageCode:    g.language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm},
		},
	})
	if err != nil {
		return "", fmt.Errorf("stt: google recognize: %w", err)
	}

	var out string
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			out += result.Alternatives[0].Transcript
		}
	}
	return out, nil
}

func googleEncodingFor(format runtimedata.SampleFormat) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch format {
	case runtimedata.SampleFormatI16LE:
		return speechpb.RecognitionConfig_LINEAR16, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("stt: google transcriber requires i16le PCM, got %q", format)
	}
}
