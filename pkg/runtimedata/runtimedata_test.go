// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package runtimedata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAudio_DerivesNumSamples(t *testing.T) {
	samples := make([]byte, 3200) // 16kHz mono i16le, 100ms
	d, err := NewAudio(samples, 16000, 1, SampleFormatI16LE)
	require.NoError(t, err)
	assert.Equal(t, uint64(1600), d.NumSamples)
	assert.Equal(t, KindAudio, d.Kind())
}

func TestNewAudio_ZeroLength(t *testing.T) {
	d, err := NewAudio(nil, 16000, 1, SampleFormatI16LE)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), d.NumSamples)
}

func TestNewAudio_NotFrameAligned(t *testing.T) {
	_, err := NewAudio([]byte{1, 2, 3}, 16000, 1, SampleFormatI16LE)
	require.Error(t, err)
	var ivd *InvalidData
	assert.ErrorAs(t, err, &ivd)
}

func TestNewNumpy_ContiguousByteSizeMismatch(t *testing.T) {
	_, err := NewNumpy(make([]byte, 10), []uint32{3, 3}, nil, "float32", true, false)
	require.Error(t, err)
}

func TestNewNumpy_ContiguousOK(t *testing.T) {
	d, err := NewNumpy(make([]byte, 36), []uint32{3, 3}, nil, "float32", true, false)
	require.NoError(t, err)
	assert.Equal(t, 9, d.ItemCount())
}

func TestClone_SharesBytesCopiesMetadata(t *testing.T) {
	d := NewText("hello", "utf-8", "en")
	d.Metadata["k"] = "v"

	c := d.Clone()
	c.Metadata["k"] = "changed"

	assert.Equal(t, "v", d.Metadata["k"], "original metadata must not be affected by clone mutation")
	assert.Equal(t, d.Bytes(), c.Bytes())
}

func TestRequireKind(t *testing.T) {
	d := NewText("x", "utf-8", "")
	assert.NoError(t, RequireKind(d, KindText))

	err := RequireKind(d, KindAudio)
	require.Error(t, err)
	var se *SchemaError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, KindAudio, se.Expected)
	assert.Equal(t, KindText, se.Got)
}

func TestNumpyDescriptorRoundTrip(t *testing.T) {
	raw := make([]byte, 24)
	for i := range raw {
		raw[i] = byte(i)
	}
	d, err := NewNumpy(raw, []uint32{2, 3}, []int64{12, 4}, "float32", true, false)
	require.NoError(t, err)

	desc, err := d.IntoNumpyDescriptor()
	require.NoError(t, err)

	rebuilt, err := FromNumpyDescriptor(desc, d.Bytes())
	require.NoError(t, err)

	assert.Equal(t, d.Shape, rebuilt.Shape)
	assert.Equal(t, d.Strides, rebuilt.Strides)
	assert.Equal(t, d.Dtype, rebuilt.Dtype)
	assert.Equal(t, d.Bytes(), rebuilt.Bytes())
}

func TestValidate_AudioInconsistentNumSamples(t *testing.T) {
	d, err := NewAudio(make([]byte, 100), 16000, 1, SampleFormatI16LE)
	require.NoError(t, err)
	d.NumSamples = 999 // corrupt after construction
	require.Error(t, d.Validate())
}

func TestControlVariant(t *testing.T) {
	d := NewControl(ControlEndOfStream, "corr-1")
	assert.Equal(t, KindControl, d.Kind())
	assert.Equal(t, "corr-1", d.CorrelationID)
}
