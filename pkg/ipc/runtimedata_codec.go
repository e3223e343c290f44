// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package ipc

import (
	"encoding/binary"
	"fmt"

	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

// EncodeNumpyPayload serialises a NumpyDescriptor and its raw bytes into
// the wire layout: shape_count(u32)+shape(u32×N)+strides_count(u32)+
// strides(i64×N)+dtype_len(u16)+dtype_utf8+flags(u8)+data. This is the
// layout an IPC frame's Payload carries for a Numpy RuntimeData so a
// zero-copy worker can decode shape/strides/dtype without a second
// marshalling pass over the data bytes.
func EncodeNumpyPayload(desc runtimedata.NumpyDescriptor, data []byte) []byte {
	size := 4 + len(desc.Shape)*4 + 4 + len(desc.Strides)*8 + 2 + len(desc.Dtype) + 1 + len(data)
	buf := make([]byte, size)
	off := 0

	binary.LittleEndian.PutUint32(buf[off:], uint32(len(desc.Shape)))
	off += 4
	for _, s := range desc.Shape {
		binary.LittleEndian.PutUint32(buf[off:], s)
		off += 4
	}

	binary.LittleEndian.PutUint32(buf[off:], uint32(len(desc.Strides)))
	off += 4
	for _, s := range desc.Strides {
		binary.LittleEndian.PutUint64(buf[off:], uint64(s))
		off += 8
	}

	binary.LittleEndian.PutUint16(buf[off:], uint16(len(desc.Dtype)))
	off += 2
	off += copy(buf[off:], desc.Dtype)

	var flags byte
	if desc.CContiguous {
		flags |= 1 << 0
	}
	if desc.FContiguous {
		flags |= 1 << 1
	}
	buf[off] = flags
	off++

	copy(buf[off:], data)
	return buf
}

// DecodeNumpyPayload parses the Numpy wire layout out of buf,
// returning the descriptor and the payload bytes (a subslice of buf — copy
// if retaining past buf's lifetime, matching Frame.Decode's aliasing rule).
func DecodeNumpyPayload(buf []byte) (runtimedata.NumpyDescriptor, []byte, error) {
	var desc runtimedata.NumpyDescriptor
	off := 0

	shapeCount, ok := readU32(buf, &off)
	if !ok {
		return desc, nil, ErrShortBuffer
	}
	desc.Shape = make([]uint32, shapeCount)
	for i := range desc.Shape {
		v, ok := readU32(buf, &off)
		if !ok {
			return desc, nil, ErrShortBuffer
		}
		desc.Shape[i] = v
	}

	stridesCount, ok := readU32(buf, &off)
	if !ok {
		return desc, nil, ErrShortBuffer
	}
	desc.Strides = make([]int64, stridesCount)
	for i := range desc.Strides {
		v, ok := readU64(buf, &off)
		if !ok {
			return desc, nil, ErrShortBuffer
		}
		desc.Strides[i] = int64(v)
	}

	dtypeLen, ok := readU16(buf, &off)
	if !ok {
		return desc, nil, ErrShortBuffer
	}
	if off+int(dtypeLen) > len(buf) {
		return desc, nil, ErrShortBuffer
	}
	desc.Dtype = string(buf[off : off+int(dtypeLen)])
	off += int(dtypeLen)

	if off >= len(buf) {
		return desc, nil, ErrShortBuffer
	}
	flags := buf[off]
	off++
	desc.CContiguous = flags&(1<<0) != 0
	desc.FContiguous = flags&(1<<1) != 0

	return desc, buf[off:], nil
}

func readU32(buf []byte, off *int) (uint32, bool) {
	if *off+4 > len(buf) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(buf[*off:])
	*off += 4
	return v, true
}

func readU64(buf []byte, off *int) (uint64, bool) {
	if *off+8 > len(buf) {
		return 0, false
	}
	v := binary.LittleEndian.Uint64(buf[*off:])
	*off += 8
	return v, true
}

func readU16(buf []byte, off *int) (uint16, bool) {
	if *off+2 > len(buf) {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(buf[*off:])
	*off += 2
	return v, true
}

func encodeString(s string) []byte {
	out := make([]byte, 2+len(s))
	binary.LittleEndian.PutUint16(out, uint16(len(s)))
	copy(out[2:], s)
	return out
}

func readString(buf []byte, off *int) (string, bool) {
	n, ok := readU16(buf, off)
	if !ok {
		return "", false
	}
	if *off+int(n) > len(buf) {
		return "", false
	}
	s := string(buf[*off : *off+int(n)])
	*off += int(n)
	return s, true
}

func encodeMetadata(m map[string]string) []byte {
	out := make([]byte, 2)
	binary.LittleEndian.PutUint16(out, uint16(len(m)))
	for k, v := range m {
		out = append(out, encodeString(k)...)
		out = append(out, encodeString(v)...)
	}
	return out
}

func decodeMetadata(buf []byte, off *int) (map[string]string, bool) {
	count, ok := readU16(buf, off)
	if !ok {
		return nil, false
	}
	m := make(map[string]string, count)
	for i := uint16(0); i < count; i++ {
		k, ok := readString(buf, off)
		if !ok {
			return nil, false
		}
		v, ok := readString(buf, off)
		if !ok {
			return nil, false
		}
		m[k] = v
	}
	return m, true
}

// EncodeRuntimeData serialises any RuntimeData variant into an IPC frame
// payload: a leading kind byte, the shared metadata map, then a
// variant-specific body — the Numpy body is exactly EncodeNumpyPayload;
// the other variants carry the fields needed to reconstruct
// them via their New* constructor plus their raw bytes.
func EncodeRuntimeData(d runtimedata.RuntimeData) ([]byte, error) {
	var body []byte
	switch d.Kind() {
	case runtimedata.KindAudio:
		body = make([]byte, 0, 8+len(d.SampleFormat)+2+d.ByteSize())
		tmp := make([]byte, 8)
		binary.LittleEndian.PutUint32(tmp[0:4], d.SampleRate)
		binary.LittleEndian.PutUint32(tmp[4:8], d.Channels)
		body = append(body, tmp...)
		body = append(body, encodeString(string(d.SampleFormat))...)
		body = append(body, d.Bytes()...)
	case runtimedata.KindVideo:
		tmp := make([]byte, 16)
		binary.LittleEndian.PutUint32(tmp[0:4], d.Width)
		binary.LittleEndian.PutUint32(tmp[4:8], d.Height)
		binary.LittleEndian.PutUint64(tmp[8:16], uint64(d.PTSMicros))
		body = append(body, tmp...)
		body = append(body, encodeString(d.PixelFormat)...)
		body = append(body, d.Bytes()...)
	case runtimedata.KindText:
		body = append(body, encodeString(d.Encoding)...)
		body = append(body, encodeString(d.Language)...)
		body = append(body, d.Bytes()...)
	case runtimedata.KindBinary:
		body = append(body, encodeString(d.MIME)...)
		body = append(body, d.Bytes()...)
	case runtimedata.KindNumpy:
		desc, err := d.IntoNumpyDescriptor()
		if err != nil {
			return nil, fmt.Errorf("ipc: encode numpy payload: %w", err)
		}
		body = EncodeNumpyPayload(desc, d.Bytes())
	case runtimedata.KindControl:
		body = append(body, byte(d.ControlKind))
		body = append(body, encodeString(d.CorrelationID)...)
	default:
		return nil, fmt.Errorf("ipc: unknown runtime data kind %d", d.Kind())
	}

	out := make([]byte, 0, 1+len(body)+16)
	out = append(out, byte(d.Kind()))
	out = append(out, encodeMetadata(d.Metadata)...)
	out = append(out, body...)
	return out, nil
}

// DecodeRuntimeData reverses EncodeRuntimeData, reconstructing a RuntimeData
// value through the matching New* constructor so every invariant those
// constructors enforce (frame alignment, numpy byte-length/shape
// consistency) still holds on the receiving side of the IPC boundary.
func DecodeRuntimeData(buf []byte) (runtimedata.RuntimeData, error) {
	if len(buf) < 1 {
		return runtimedata.RuntimeData{}, ErrShortBuffer
	}
	kind := runtimedata.Kind(buf[0])
	off := 1

	meta, ok := decodeMetadata(buf, &off)
	if !ok {
		return runtimedata.RuntimeData{}, ErrShortBuffer
	}

	var (
		d   runtimedata.RuntimeData
		err error
	)
	switch kind {
	case runtimedata.KindAudio:
		sampleRate, ok := readU32(buf, &off)
		if !ok {
			return runtimedata.RuntimeData{}, ErrShortBuffer
		}
		channels, ok := readU32(buf, &off)
		if !ok {
			return runtimedata.RuntimeData{}, ErrShortBuffer
		}
		format, ok := readString(buf, &off)
		if !ok {
			return runtimedata.RuntimeData{}, ErrShortBuffer
		}
		d, err = runtimedata.NewAudio(append([]byte(nil), buf[off:]...), sampleRate, channels, runtimedata.SampleFormat(format))
	case runtimedata.KindVideo:
		width, ok := readU32(buf, &off)
		if !ok {
			return runtimedata.RuntimeData{}, ErrShortBuffer
		}
		height, ok := readU32(buf, &off)
		if !ok {
			return runtimedata.RuntimeData{}, ErrShortBuffer
		}
		pts, ok := readU64(buf, &off)
		if !ok {
			return runtimedata.RuntimeData{}, ErrShortBuffer
		}
		pixelFormat, ok := readString(buf, &off)
		if !ok {
			return runtimedata.RuntimeData{}, ErrShortBuffer
		}
		d = runtimedata.NewVideo(append([]byte(nil), buf[off:]...), width, height, pixelFormat, int64(pts))
	case runtimedata.KindText:
		encoding, ok := readString(buf, &off)
		if !ok {
			return runtimedata.RuntimeData{}, ErrShortBuffer
		}
		language, ok := readString(buf, &off)
		if !ok {
			return runtimedata.RuntimeData{}, ErrShortBuffer
		}
		d = runtimedata.NewText(string(buf[off:]), encoding, language)
	case runtimedata.KindBinary:
		mime, ok := readString(buf, &off)
		if !ok {
			return runtimedata.RuntimeData{}, ErrShortBuffer
		}
		d = runtimedata.NewBinary(append([]byte(nil), buf[off:]...), mime)
	case runtimedata.KindNumpy:
		desc, data, derr := DecodeNumpyPayload(buf[off:])
		if derr != nil {
			return runtimedata.RuntimeData{}, derr
		}
		d, err = runtimedata.FromNumpyDescriptor(desc, append([]byte(nil), data...))
	case runtimedata.KindControl:
		if off >= len(buf) {
			return runtimedata.RuntimeData{}, ErrShortBuffer
		}
		controlKind := runtimedata.ControlKind(buf[off])
		off++
		correlationID, ok := readString(buf, &off)
		if !ok {
			return runtimedata.RuntimeData{}, ErrShortBuffer
		}
		d = runtimedata.NewControl(controlKind, correlationID)
	default:
		return runtimedata.RuntimeData{}, fmt.Errorf("ipc: unknown runtime data kind %d", kind)
	}
	if err != nil {
		return runtimedata.RuntimeData{}, fmt.Errorf("ipc: decode runtime data: %w", err)
	}

	d.Metadata = meta
	return d, nil
}
