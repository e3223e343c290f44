// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package arithmetic implements a minimal NodeExecutor library for
// exercising pipelines end-to-end: Multiply, Add, PassThrough, and Sink
// nodes operating on single-element float64 Numpy scalars.
package arithmetic

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

const scalarDtype = "float64"

// NewScalar wraps a single float64 as a shape-[1] C-contiguous Numpy
// RuntimeData, the wire representation these demo nodes pass between
// each other.
func NewScalar(value float64) (runtimedata.RuntimeData, error) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(value))
	return runtimedata.NewNumpy(buf, []uint32{1}, []int64{8}, scalarDtype, true, true)
}

// ScalarValue extracts the float64 carried by a single-element Numpy
// RuntimeData produced by NewScalar, for callers (tests, sink consumers)
// that need the raw number back out.
func ScalarValue(d runtimedata.RuntimeData) (float64, error) {
	return scalarValue(d)
}

// scalarValue extracts the float64 carried by a single-element Numpy
// RuntimeData produced by NewScalar.
func scalarValue(d runtimedata.RuntimeData) (float64, error) {
	if err := runtimedata.RequireKind(d, runtimedata.KindNumpy); err != nil {
		return 0, err
	}
	desc, err := d.IntoNumpyDescriptor()
	if err != nil {
		return 0, err
	}
	if desc.Dtype != scalarDtype {
		return 0, fmt.Errorf("arithmetic: expected dtype %q, got %q", scalarDtype, desc.Dtype)
	}
	raw := d.Bytes()
	if len(raw) != 8 {
		return 0, fmt.Errorf("arithmetic: expected 8-byte scalar payload, got %d bytes", len(raw))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(raw)), nil
}
