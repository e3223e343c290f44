// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package ipc

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// slotHeaderSize is the 4-byte atomically-toggled length word at the start
// of every ring slot: 0 means empty, non-zero means "occupied, this many
// payload bytes are valid." It is distinct from the Frame header in
// frame.go — this word belongs to the ring's flow control, not the wire
// frame itself (a whole encoded Frame, header included, is what's written
// after it).
const slotHeaderSize = 4

// Ring is a bounded, single-producer/single-consumer ring buffer of
// fixed-size slots carved out of a caller-supplied byte region — in
// production that region is OS shared memory (see Region in shm.go), which
// is what lets two separate processes each hold their own Ring view over
// the same bytes and hand frames across the process boundary without a
// syscall per message. The slot-occupancy word is toggled with
// sync/atomic directly on the mapped bytes so producer and consumer need
// no other synchronization primitive — a pthread/OS mutex can't be shared
// across processes the way Go's sync.Mutex assumes, so this is the layer
// that takes its place.
type Ring struct {
	region   []byte
	slotSize int
	slots    int
	writePos uint64 // local to this Ring view; the producer side only
	readPos  uint64 // local to this Ring view; the consumer side only

	// pendingRelease marks that the last TryRead's slot is still occupied;
	// it is freed at the start of the next TryRead, so a returned Frame's
	// in-place Payload stays valid until the consumer asks for the next one.
	pendingRelease bool
}

// NewRing partitions region into slots slots of slotPayloadCap usable
// payload bytes each (plus the slotHeaderSize occupancy word). region must
// be at least slots*(slotHeaderSize+slotPayloadCap) bytes and must be
// zeroed (freshly mapped memory already is) so every slot starts empty.
func NewRing(region []byte, slots, slotPayloadCap int) (*Ring, error) {
	if slots < 1 {
		return nil, fmt.Errorf("ipc: ring needs at least 1 slot")
	}
	slotSize := slotHeaderSize + slotPayloadCap
	need := slotSize * slots
	if len(region) < need {
		return nil, fmt.Errorf("ipc: region too small: need %d bytes, have %d", need, len(region))
	}
	return &Ring{region: region, slotSize: slotSize, slots: slots}, nil
}

func (r *Ring) slotHeader(index int) *uint32 {
	off := index * r.slotSize
	return (*uint32)(unsafe.Pointer(&r.region[off]))
}

func (r *Ring) slotPayload(index int) []byte {
	off := index*r.slotSize + slotHeaderSize
	return r.region[off : off+r.slotSize-slotHeaderSize]
}

// ErrRingFull is returned by TryWrite when the producer has caught up to a
// slot the consumer hasn't drained yet.
var ErrRingFull = fmt.Errorf("ipc: ring full")

// ErrFrameTooLarge is returned when an encoded frame wouldn't fit a slot.
var ErrFrameTooLarge = fmt.Errorf("ipc: frame exceeds slot capacity")

// TryWrite encodes frame into the next slot and publishes it by storing its
// length with Release ordering (a plain atomic store; Go's memory model
// treats it as synchronizing with the consumer's Load in TryRead). Returns
// ErrRingFull without blocking if the slot is still occupied.
func (r *Ring) TryWrite(frame Frame) error {
	index := int(r.writePos % uint64(r.slots))
	header := r.slotHeader(index)
	if atomic.LoadUint32(header) != 0 {
		return ErrRingFull
	}

	payloadArea := r.slotPayload(index)
	n, err := Encode(payloadArea, frame)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFrameTooLarge, err)
	}

	atomic.StoreUint32(header, uint32(n))
	r.writePos++
	return nil
}

// TryRead consumes the next slot if the producer has published one. The
// returned Frame's Payload is read in place — a subslice of the slot — and
// stays valid until the next TryRead call on this Ring: the slot is only
// released back to the producer then, so the producer can never overwrite
// bytes the consumer is still looking at. Callers retaining a payload past
// the next TryRead must copy.
func (r *Ring) TryRead() (Frame, bool, error) {
	if r.pendingRelease {
		prev := int((r.readPos - 1) % uint64(r.slots))
		atomic.StoreUint32(r.slotHeader(prev), 0)
		r.pendingRelease = false
	}

	index := int(r.readPos % uint64(r.slots))
	header := r.slotHeader(index)
	length := atomic.LoadUint32(header)
	if length == 0 {
		return Frame{}, false, nil
	}

	payloadArea := r.slotPayload(index)
	frame, _, err := Decode(payloadArea[:length])
	if err != nil {
		return Frame{}, false, err
	}

	r.pendingRelease = true
	r.readPos++
	return frame, true, nil
}

// Slots returns the ring's slot count, for capacity introspection.
func (r *Ring) Slots() int { return r.slots }
