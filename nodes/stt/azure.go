// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package stt

import (
	"context"
	"fmt"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/audio"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"

	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

type azureTranscriber struct {
	language string
	region   string
	apiKey   string
}

func newAzureTranscriber(language, region, apiKey string) *azureTranscriber {
	if language == "" {
		language = "en-US"
	}
	return &azureTranscriber{language: language, region: region, apiKey: apiKey}
}

func (a *azureTranscriber) Transcribe(ctx context.Context, pcm []byte, sampleRate, channels uint32, format runtimedata.SampleFormat) (string, error) {
	if format != runtimedata.SampleFormatI16LE {
		return "", fmt.Errorf("stt: azure transcriber requires i16le PCM, got %q", format)
	}

	config, err := speech.NewSpeechConfigFromSubscription(a.apiKey, a.region)
	if err != nil {
		return "", fmt.Errorf("stt: azure speech config: %w", err)
	}
	defer config.Close()
	config.SetSpeechRecognitionLanguage(a.language)

	format16, err := audio.GetWaveFormatPCM(sampleRate, 16, uint8(channels))
	if err != nil {
		return "", fmt.Errorf("stt: azure wave format: %w", err)
	}
	defer format16.Close()

	stream, err := audio.CreatePushAudioInputStreamFromFormat(format16)
	if err != nil {
		return "", fmt.Errorf("stt: azure push stream: %w", err)
	}
	defer stream.Close()

	audioConfig, err := audio.NewAudioConfigFromStreamInput(stream)
	if err != nil {
		return "", fmt.Errorf("stt: azure audio config: %w", err)
	}
	defer audioConfig.Close()

	recognizer, err := speech.NewSpeechRecognizerFromConfig(config, audioConfig)
	if err != nil {
		return "", fmt.Errorf("stt: azure recognizer: %w", err)
	}
	defer recognizer.Close()

	if err := stream.Write(pcm); err != nil {
		return "", fmt.Errorf("stt: azure stream write: %w", err)
	}
	stream.CloseStream()

	outcome := <-recognizer.RecognizeOnceAsync()
	if outcome.Error != nil {
		return "", fmt.Errorf("stt: azure recognize: %w", outcome.Error)
	}
	defer outcome.Close()
	return outcome.Result.Text, nil
}
