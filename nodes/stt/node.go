// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package stt

import (
	"context"

	"github.com/rapidaai/streamrt/pkg/node"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

// sttParams configures a transcription node. Region holds the Azure
// region when provider is "azure"; it is unused by the other providers.
type sttParams struct {
	Provider string `mapstructure:"provider" validate:"required"`
	Language string `mapstructure:"language"`
	Region   string `mapstructure:"region"`
	APIKey   string `mapstructure:"api_key"`
}

// sttNode is an Audio -> Text NodeExecutor.
// It is ModeUnary: one utterance's Audio RuntimeData in, one Text
// RuntimeData out, mirroring the one-shot (non-streaming) recognition
// calls every provider adapter makes.
type sttNode struct {
	node.UnimplementedStreaming
	transcriber transcriber
	language    string
}

// NewSTT constructs a transcription node for params.provider.
func NewSTT(rawParams map[string]interface{}) (node.Executor, error) {
	var p sttParams
	if err := node.DecodeParams(rawParams, &p); err != nil {
		return nil, err
	}
	t, err := newTranscriber(p.Provider, p.Language, p.Region, p.APIKey)
	if err != nil {
		return nil, err
	}
	return &sttNode{transcriber: t, language: p.Language}, nil
}

func (n *sttNode) Initialize(ctx context.Context) error { return nil }

func (n *sttNode) Process(ctx context.Context, input runtimedata.RuntimeData) ([]runtimedata.RuntimeData, error) {
	if err := runtimedata.RequireKind(input, runtimedata.KindAudio); err != nil {
		return nil, err
	}
	text, err := n.transcriber.Transcribe(ctx, input.Bytes(), input.SampleRate, input.Channels, input.SampleFormat)
	if err != nil {
		return nil, err
	}
	out := runtimedata.NewText(text, "utf-8", n.language)
	return []runtimedata.RuntimeData{out}, nil
}

func (n *sttNode) Cleanup(ctx context.Context) error { return nil }

func (n *sttNode) Info() node.Info {
	return node.Info{
		NodeType:    "stt",
		Mode:        node.ModeUnary,
		InputKinds:  []runtimedata.Kind{runtimedata.KindAudio},
		OutputKinds: []runtimedata.Kind{runtimedata.KindText},
	}
}

// Register adds the stt node type to reg.
func Register(reg *node.Registry) {
	reg.Register("stt", NewSTT)
}
