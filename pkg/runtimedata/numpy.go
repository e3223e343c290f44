// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package runtimedata

// NumpyDescriptor is the shape/strides/dtype/flags header that accompanies
// a Numpy variant's raw bytes across the IPC boundary.
// Carrying it separately from the bytes is what lets pkg/ipc defer
// serialisation to the frame boundary instead of paying for it twice.
type NumpyDescriptor struct {
	Shape       []uint32
	Strides     []int64
	Dtype       string
	CContiguous bool
	FContiguous bool
}

// IntoNumpyDescriptor extracts the descriptor half of a Numpy RuntimeData,
// leaving the bytes to be handled separately (Bytes()) so a zero-copy IPC
// writer can place them directly into a shared-memory frame.
func (d RuntimeData) IntoNumpyDescriptor() (NumpyDescriptor, error) {
	if d.kind != KindNumpy {
		return NumpyDescriptor{}, &SchemaError{Expected: KindNumpy, Got: d.kind}
	}
	return NumpyDescriptor{
		Shape:       append([]uint32(nil), d.Shape...),
		Strides:     append([]int64(nil), d.Strides...),
		Dtype:       d.Dtype,
		CContiguous: d.CContiguous,
		FContiguous: d.FContiguous,
	}, nil
}

// FromNumpyDescriptor reconstructs a Numpy RuntimeData from a descriptor and
// payload bytes without copying buf when the caller hands over ownership of
// buf (e.g. a still-mapped IPC frame region); the receive side of the
// zero-copy round trip.
func FromNumpyDescriptor(desc NumpyDescriptor, buf []byte) (RuntimeData, error) {
	return NewNumpy(buf, desc.Shape, desc.Strides, desc.Dtype, desc.CContiguous, desc.FContiguous)
}
