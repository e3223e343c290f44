// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package formatconvert implements the NumpyAudio <-> Audio identity
// conversion node: it re-tags the same interleaved PCM bytes between the
// Numpy and Audio RuntimeData variants without resampling, re-encoding,
// or otherwise touching a sample, so the conversion is the identity on
// raw samples in both directions.
package formatconvert

import (
	"context"
	"fmt"

	"github.com/rapidaai/streamrt/pkg/node"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

// dtypeForSampleFormat maps an Audio variant's SampleFormat to the Numpy
// dtype string that losslessly represents the same byte layout.
func dtypeForSampleFormat(f runtimedata.SampleFormat) (string, error) {
	switch f {
	case runtimedata.SampleFormatI16LE:
		return "int16", nil
	case runtimedata.SampleFormatF32LE:
		return "float32", nil
	default:
		return "", fmt.Errorf("formatconvert: unsupported sample format %q", f)
	}
}

// sampleFormatForDtype is the inverse of dtypeForSampleFormat.
func sampleFormatForDtype(dtype string) (runtimedata.SampleFormat, error) {
	switch dtype {
	case "int16":
		return runtimedata.SampleFormatI16LE, nil
	case "float32":
		return runtimedata.SampleFormatF32LE, nil
	default:
		return "", fmt.Errorf("formatconvert: unsupported numpy dtype %q for audio", dtype)
	}
}

// params configures the Audio-side metadata a NumpyAudio -> Audio
// conversion needs, since a bare Numpy array carries no sample rate or
// channel count of its own.
type params struct {
	SampleRate uint32 `mapstructure:"sample_rate"`
	Channels   uint32 `mapstructure:"channels"`
}

// converterNode implements the bidirectional NumpyAudio <-> Audio
// conversion. Direction is inferred from the input's Kind at Process time,
// so a single node type serves both halves of the round trip.
type converterNode struct {
	node.UnimplementedStreaming
	sampleRate uint32
	channels   uint32
}

// New constructs a FormatConverter node. sample_rate and channels apply
// only to the Numpy -> Audio direction; they are ignored when converting
// Audio -> Numpy, since the source Audio value already carries them.
func New(rawParams map[string]interface{}) (node.Executor, error) {
	var p params
	if err := node.DecodeParams(rawParams, &p); err != nil {
		return nil, err
	}
	return &converterNode{sampleRate: p.SampleRate, channels: p.Channels}, nil
}

func (n *converterNode) Initialize(ctx context.Context) error { return nil }

func (n *converterNode) Process(ctx context.Context, input runtimedata.RuntimeData) ([]runtimedata.RuntimeData, error) {
	switch input.Kind() {
	case runtimedata.KindAudio:
		return n.audioToNumpy(input)
	case runtimedata.KindNumpy:
		return n.numpyToAudio(input)
	default:
		return nil, &runtimedata.SchemaError{Expected: runtimedata.KindAudio, Got: input.Kind()}
	}
}

// audioToNumpy re-tags an Audio value's raw bytes as a 1-D Numpy array,
// preserving sample rate and channel count in Metadata so a later
// numpyToAudio call can restore them exactly.
func (n *converterNode) audioToNumpy(input runtimedata.RuntimeData) ([]runtimedata.RuntimeData, error) {
	dtype, err := dtypeForSampleFormat(input.SampleFormat)
	if err != nil {
		return nil, err
	}
	raw := input.Bytes()
	elemSize := 2
	if dtype == "float32" {
		elemSize = 4
	}
	out, err := runtimedata.NewNumpy(raw, []uint32{uint32(len(raw) / elemSize)}, []int64{int64(elemSize)}, dtype, true, true)
	if err != nil {
		return nil, err
	}
	out.Metadata["sample_rate"] = fmt.Sprintf("%d", input.SampleRate)
	out.Metadata["channels"] = fmt.Sprintf("%d", input.Channels)
	return []runtimedata.RuntimeData{out}, nil
}

// numpyToAudio re-tags a Numpy array's raw bytes as an Audio value. Sample
// rate and channel count come from the node's configured params, falling
// back to metadata left by a prior audioToNumpy call when present.
func (n *converterNode) numpyToAudio(input runtimedata.RuntimeData) ([]runtimedata.RuntimeData, error) {
	desc, err := input.IntoNumpyDescriptor()
	if err != nil {
		return nil, err
	}
	format, err := sampleFormatForDtype(desc.Dtype)
	if err != nil {
		return nil, err
	}

	sampleRate := n.sampleRate
	channels := n.channels
	if sampleRate == 0 {
		sampleRate = metadataUint32(input, "sample_rate")
	}
	if channels == 0 {
		channels = metadataUint32(input, "channels")
	}
	if channels == 0 {
		channels = 1
	}

	out, err := runtimedata.NewAudio(input.Bytes(), sampleRate, channels, format)
	if err != nil {
		return nil, err
	}
	return []runtimedata.RuntimeData{out}, nil
}

func metadataUint32(d runtimedata.RuntimeData, key string) uint32 {
	v, ok := d.Metadata[key]
	if !ok {
		return 0
	}
	var n uint32
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return 0
	}
	return n
}

func (n *converterNode) Cleanup(ctx context.Context) error { return nil }

func (n *converterNode) Info() node.Info {
	return node.Info{
		NodeType:    "format_converter",
		Mode:        node.ModeUnary,
		InputKinds:  []runtimedata.Kind{runtimedata.KindAudio, runtimedata.KindNumpy},
		OutputKinds: []runtimedata.Kind{runtimedata.KindAudio, runtimedata.KindNumpy},
	}
}

// Register adds the FormatConverter node type to reg.
func Register(reg *node.Registry) {
	reg.Register("format_converter", New)
}
