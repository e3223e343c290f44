// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package session

import "container/heap"

// itemHeap is a min-heap of Items ordered by Sequence, used internally by
// OrderedMerge to reassemble interleaved per-source streams back into
// sequence order.
type itemHeap []Item

func (h itemHeap) Len() int            { return len(h) }
func (h itemHeap) Less(i, j int) bool  { return h[i].Sequence < h[j].Sequence }
func (h itemHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x interface{}) { *h = append(*h, x.(Item)) }
func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// OrderedMerge buffers items arriving out of order from multiple upstream
// sources and releases them in strictly increasing Sequence order. It holds
// back an item whenever the next expected sequence number hasn't arrived
// yet, rather than releasing strictly by heap-min, so that a late arrival
// can't be skipped past.
//
// OrderedMerge is not safe for concurrent use; callers serialize access to
// it the same way a single consumer task owns an Edge.
type OrderedMerge struct {
	pending itemHeap
	next    uint64
	started bool
}

// NewOrderedMerge returns a merge buffer that releases items starting from
// the first sequence number it observes.
func NewOrderedMerge() *OrderedMerge {
	m := &OrderedMerge{}
	heap.Init(&m.pending)
	return m
}

// Offer adds an out-of-band-arrived item to the pending set.
func (m *OrderedMerge) Offer(item Item) {
	if !m.started {
		m.started = true
		m.next = item.Sequence
	}
	heap.Push(&m.pending, item)
}

// Drain returns every item that can be released in order given what's been
// Offered so far: a contiguous run starting at the lowest pending sequence
// number once that number equals the next expected one. If the minimum
// pending sequence is ahead of m.next, Drain returns nothing yet — the gap
// must be filled by a future Offer (or reconciled by a caller-side timeout,
// which OrderedMerge itself does not impose).
func (m *OrderedMerge) Drain() []Item {
	var out []Item
	for m.pending.Len() > 0 && m.pending[0].Sequence == m.next {
		item := heap.Pop(&m.pending).(Item)
		out = append(out, item)
		m.next++
	}
	return out
}

// Pending returns the number of items buffered and not yet releasable.
func (m *OrderedMerge) Pending() int { return m.pending.Len() }
