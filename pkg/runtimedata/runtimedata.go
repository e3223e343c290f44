// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package runtimedata defines RuntimeData, the universal unit of data flow
// between pipeline nodes. It is a tagged sum of Audio,
// Video, Text, Binary, Numpy, and Control variants sharing a common
// ownership and metadata model.
package runtimedata

import (
	"fmt"
	"sync/atomic"
)

// Kind is the RuntimeData variant discriminator.
type Kind uint8

const (
	KindAudio Kind = iota
	KindVideo
	KindText
	KindBinary
	KindNumpy
	KindControl
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	case KindNumpy:
		return "numpy"
	case KindControl:
		return "control"
	default:
		return "unknown"
	}
}

// SampleFormat enumerates the supported audio sample encodings.
type SampleFormat string

const (
	SampleFormatF32LE SampleFormat = "f32le"
	SampleFormatI16LE SampleFormat = "i16le"
)

// ControlKind enumerates the Control variant's sub-kinds.
type ControlKind uint8

const (
	ControlFlushBarrier ControlKind = iota
	ControlEndOfStream
	ControlReset
)

// InvalidData is returned for malformed variant payloads.
type InvalidData struct{ Reason string }

func (e *InvalidData) Error() string { return fmt.Sprintf("invalid runtime data: %s", e.Reason) }

// SchemaError is returned when a node observes a variant it did not declare
// support for in its NodeInfo input/output constraints.
type SchemaError struct {
	Expected Kind
	Got      Kind
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema mismatch: node expects %s, got %s", e.Expected, e.Got)
}

// refcount is a shared byte owner used so that fan-out clones never copy
// payload bytes; only the metadata map is copied per clone.
type refcount struct {
	bytes []byte
	n     int32
}

func newRefcount(b []byte) *refcount { return &refcount{bytes: b, n: 1} }

func (r *refcount) retain() *refcount {
	atomic.AddInt32(&r.n, 1)
	return r
}

// RuntimeData is the tagged-union payload carrier. Exactly one of the
// variant-specific fields is populated, matching the Kind discriminator.
// A zero-value RuntimeData is never passed between nodes; always construct
// via the New* constructors below so the discriminator/payload invariant
// holds by construction.
type RuntimeData struct {
	kind Kind

	// Shared across variants.
	payload  *refcount
	Metadata map[string]string

	// Audio
	SampleRate   uint32
	Channels     uint32
	SampleFormat SampleFormat
	NumSamples   uint64

	// Video
	Width       uint32
	Height      uint32
	PixelFormat string
	PTSMicros   int64

	// Text
	Encoding string
	Language string

	// Binary
	MIME string

	// Numpy
	Shape        []uint32
	Strides      []int64
	Dtype        string
	CContiguous  bool
	FContiguous  bool

	// Control
	ControlKind   ControlKind
	CorrelationID string
}

func bytesPerSample(f SampleFormat) int {
	switch f {
	case SampleFormatF32LE:
		return 4
	case SampleFormatI16LE:
		return 2
	default:
		return 0
	}
}

// NewAudio constructs an Audio variant, deriving
// NumSamples = len(samples) / (bytes_per_sample * channels).
func NewAudio(samples []byte, sampleRate, channels uint32, format SampleFormat) (RuntimeData, error) {
	bps := bytesPerSample(format)
	if bps == 0 {
		return RuntimeData{}, &InvalidData{Reason: "unknown sample format"}
	}
	if channels == 0 {
		return RuntimeData{}, &InvalidData{Reason: "channels must be > 0"}
	}
	frame := bps * int(channels)
	if len(samples)%frame != 0 {
		return RuntimeData{}, &InvalidData{Reason: "audio payload not frame-aligned"}
	}
	return RuntimeData{
		kind:         KindAudio,
		payload:      newRefcount(samples),
		Metadata:     map[string]string{},
		SampleRate:   sampleRate,
		Channels:     channels,
		SampleFormat: format,
		NumSamples:   uint64(len(samples) / frame),
	}, nil
}

// NewVideo constructs a Video variant carrying one frame.
func NewVideo(frame []byte, width, height uint32, pixelFormat string, ptsMicros int64) RuntimeData {
	return RuntimeData{
		kind:        KindVideo,
		payload:     newRefcount(frame),
		Metadata:    map[string]string{},
		Width:       width,
		Height:      height,
		PixelFormat: pixelFormat,
		PTSMicros:   ptsMicros,
	}
}

// NewText constructs a Text variant.
func NewText(text string, encoding, language string) RuntimeData {
	return RuntimeData{
		kind:     KindText,
		payload:  newRefcount([]byte(text)),
		Metadata: map[string]string{},
		Encoding: encoding,
		Language: language,
	}
}

// NewBinary constructs a Binary variant.
func NewBinary(b []byte, mime string) RuntimeData {
	return RuntimeData{
		kind:     KindBinary,
		payload:  newRefcount(b),
		Metadata: map[string]string{},
		MIME:     mime,
	}
}

// NewNumpy constructs a Numpy variant. Invariant: when
// c_contiguous is true, len(bytes) must equal product(shape) * dtypeSize.
func NewNumpy(b []byte, shape []uint32, strides []int64, dtype string, cContiguous, fContiguous bool) (RuntimeData, error) {
	if cContiguous {
		size, err := dtypeSize(dtype)
		if err != nil {
			return RuntimeData{}, err
		}
		want := size
		for _, d := range shape {
			want *= int(d)
		}
		if want != len(b) {
			return RuntimeData{}, &InvalidData{Reason: "numpy byte length does not match shape*dtype_size"}
		}
	}
	return RuntimeData{
		kind:        KindNumpy,
		payload:     newRefcount(b),
		Metadata:    map[string]string{},
		Shape:       append([]uint32(nil), shape...),
		Strides:     append([]int64(nil), strides...),
		Dtype:       dtype,
		CContiguous: cContiguous,
		FContiguous: fContiguous,
	}, nil
}

// NewControl constructs a Control variant.
func NewControl(kind ControlKind, correlationID string) RuntimeData {
	return RuntimeData{
		kind:          KindControl,
		payload:       newRefcount(nil),
		Metadata:      map[string]string{},
		ControlKind:   kind,
		CorrelationID: correlationID,
	}
}

func dtypeSize(dtype string) (int, error) {
	switch dtype {
	case "float32", "int32", "uint32":
		return 4, nil
	case "float64", "int64", "uint64":
		return 8, nil
	case "int16", "uint16":
		return 2, nil
	case "int8", "uint8", "bool":
		return 1, nil
	default:
		return 0, &InvalidData{Reason: "unknown numpy dtype: " + dtype}
	}
}

// Kind returns the variant discriminator.
func (d RuntimeData) Kind() Kind { return d.kind }

// IsNumpy reports whether this value is the Numpy variant.
func (d RuntimeData) IsNumpy() bool { return d.kind == KindNumpy }

// Bytes returns the underlying payload bytes. Callers must not mutate the
// returned slice; RuntimeData values may share a payload across clones.
func (d RuntimeData) Bytes() []byte {
	if d.payload == nil {
		return nil
	}
	return d.payload.bytes
}

// ByteSize returns the payload size in bytes.
func (d RuntimeData) ByteSize() int {
	if d.payload == nil {
		return 0
	}
	return len(d.payload.bytes)
}

// ItemCount returns a variant-appropriate item count: audio samples, video
// frames (always 1), text runes are not counted (byte-oriented), numpy
// elements (product of shape).
func (d RuntimeData) ItemCount() int {
	switch d.kind {
	case KindAudio:
		return int(d.NumSamples)
	case KindVideo:
		return 1
	case KindNumpy:
		n := 1
		for _, s := range d.Shape {
			n *= int(s)
		}
		return n
	default:
		return d.ByteSize()
	}
}

// Clone returns a value sharing the same underlying payload bytes (refcount
// retained) but with its own copy of Metadata, so fan-out consumers can
// annotate a record without touching siblings.
func (d RuntimeData) Clone() RuntimeData {
	clone := d
	if d.payload != nil {
		clone.payload = d.payload.retain()
	}
	clone.Metadata = make(map[string]string, len(d.Metadata))
	for k, v := range d.Metadata {
		clone.Metadata[k] = v
	}
	clone.Shape = append([]uint32(nil), d.Shape...)
	clone.Strides = append([]int64(nil), d.Strides...)
	return clone
}

// Validate checks the cross-field invariants that construction
// alone cannot guarantee once a value has been mutated by a node (e.g. a
// node rewriting SampleRate without recomputing NumSamples).
func (d RuntimeData) Validate() error {
	switch d.kind {
	case KindAudio:
		bps := bytesPerSample(d.SampleFormat)
		if bps == 0 {
			return &InvalidData{Reason: "unknown sample format"}
		}
		frame := bps * int(d.Channels)
		if frame == 0 || d.ByteSize()%frame != 0 {
			return &InvalidData{Reason: "audio payload not frame-aligned"}
		}
		if uint64(d.ByteSize()/frame) != d.NumSamples {
			return &InvalidData{Reason: "num_samples inconsistent with payload length"}
		}
	case KindNumpy:
		if d.CContiguous {
			size, err := dtypeSize(d.Dtype)
			if err != nil {
				return err
			}
			want := size
			for _, s := range d.Shape {
				want *= int(s)
			}
			if want != d.ByteSize() {
				return &InvalidData{Reason: "numpy byte length does not match shape*dtype_size"}
			}
		}
	}
	return nil
}

// RequireKind returns SchemaError if d is not of kind k, for nodes enforcing
// their declared input/output variant constraints.
func RequireKind(d RuntimeData, k Kind) error {
	if d.kind != k {
		return &SchemaError{Expected: k, Got: d.kind}
	}
	return nil
}
