// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package tts

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"github.com/rapidaai/streamrt/pkg/node"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

// ttsParams configures voice selection and output sample rate. An empty
// LanguageCode/VoiceName falls back to a reasonable default rather than
// failing node construction, since most deployments run one fixed voice.
type ttsParams struct {
	LanguageCode string `mapstructure:"language_code"`
	VoiceName    string `mapstructure:"voice_name"`
	SampleRate   uint32 `mapstructure:"sample_rate"`
}

// synthesizer is the provider boundary, kept as an interface (mirroring
// nodes/llm and nodes/stt) so Process logic can be tested without a real
// Google Cloud credential.
type synthesizer interface {
	Synthesize(ctx context.Context, text string) (pcm []byte, sampleRate uint32, err error)
}

type googleSynthesizer struct {
	languageCode string
	voiceName    string
	sampleRate   uint32
}

func (g *googleSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, uint32, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("tts: google texttospeech client: %w", err)
	}
	defer client.Close()

	resp, err := client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.languageCode,
			Name:         g.voiceName,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SampleRateHertz: int32(g.sampleRate),
		},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("tts: google synthesize: %w", err)
	}
	return resp.AudioContent, g.sampleRate, nil
}

// ttsNode is a Text -> Audio NodeExecutor.
type ttsNode struct {
	node.UnimplementedStreaming
	synth synthesizer
}

// NewTTS constructs a Google Cloud text-to-speech node.
func NewTTS(rawParams map[string]interface{}) (node.Executor, error) {
	var p ttsParams
	if err := node.DecodeParams(rawParams, &p); err != nil {
		return nil, err
	}
	if p.LanguageCode == "" {
		p.LanguageCode = "en-US"
	}
	if p.SampleRate == 0 {
		p.SampleRate = 24000
	}
	return &ttsNode{synth: &googleSynthesizer{
		languageCode: p.LanguageCode,
		voiceName:    p.VoiceName,
		sampleRate:   p.SampleRate,
	}}, nil
}

func (n *ttsNode) Initialize(ctx context.Context) error { return nil }

func (n *ttsNode) Process(ctx context.Context, input runtimedata.RuntimeData) ([]runtimedata.RuntimeData, error) {
	if err := runtimedata.RequireKind(input, runtimedata.KindText); err != nil {
		return nil, err
	}
	text := normalizeNumbers(string(input.Bytes()))

	pcm, sampleRate, err := n.synth.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	out, err := runtimedata.NewAudio(pcm, sampleRate, 1, runtimedata.SampleFormatI16LE)
	if err != nil {
		return nil, err
	}
	return []runtimedata.RuntimeData{out}, nil
}

func (n *ttsNode) Cleanup(ctx context.Context) error { return nil }

func (n *ttsNode) Info() node.Info {
	return node.Info{
		NodeType:    "tts",
		Mode:        node.ModeUnary,
		InputKinds:  []runtimedata.Kind{runtimedata.KindText},
		OutputKinds: []runtimedata.Kind{runtimedata.KindAudio},
	}
}

// Register adds the tts node type to reg.
func Register(reg *node.Registry) {
	reg.Register("tts", NewTTS)
}
