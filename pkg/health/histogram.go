// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package health implements the health & telemetry layer:
// per-(session, measurement_point) latency histograms, drift/jitter
// detection, audio/video stream quality analyzers, and an alert bus with
// coalescing, exported both through a pluggable Sink interface and via
// Prometheus.
package health

import (
	"math"
	"sort"
	"sync"
)

// MeasurementPoint names where in the pipeline a latency sample was taken;
// one Histogram exists per (session, measurement point).
type MeasurementPoint string

const (
	MeasurementNodeProcess    MeasurementPoint = "node_process"
	MeasurementEndToEnd       MeasurementPoint = "end_to_end"
	MeasurementIPCRoundTrip   MeasurementPoint = "ipc_round_trip"
	MeasurementSchedulerQueue MeasurementPoint = "scheduler_queue"

	// The three passive per-session tap points: where data enters the
	// session, where a sink's output leaves it, and each internal edge.
	// Their histograms record inter-arrival time at the point.
	MeasurementIngress MeasurementPoint = "ingress"
	MeasurementEgress  MeasurementPoint = "egress"
	MeasurementEdge    MeasurementPoint = "edge"
)

// Percentiles is a point-in-time snapshot of a Histogram's distribution.
type Percentiles struct {
	P50, P95, P99 float64
	Count         int
}

// Histogram is a windowed percentile recorder: the last maxSamples
// observations, sorted on demand to answer Percentiles. This trades
// O(n log n) Snapshot cost (n bounded by maxSamples, and
// Snapshot is called at a health-reporting cadence, not per-sample) for an
// implementation with no extra dependency.
type Histogram struct {
	mu         sync.Mutex
	samples    []float64
	maxSamples int
	writeIdx   int
	filled     bool
}

// NewHistogram returns a Histogram retaining up to maxSamples most recent
// observations.
func NewHistogram(maxSamples int) *Histogram {
	if maxSamples < 1 {
		maxSamples = 1
	}
	return &Histogram{samples: make([]float64, maxSamples), maxSamples: maxSamples}
}

// Record adds one observation (e.g. a duration in milliseconds).
func (h *Histogram) Record(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples[h.writeIdx] = value
	h.writeIdx = (h.writeIdx + 1) % h.maxSamples
	if h.writeIdx == 0 {
		h.filled = true
	}
}

// Snapshot computes P50/P95/P99 over the currently retained window.
func (h *Histogram) Snapshot() Percentiles {
	h.mu.Lock()
	var data []float64
	if h.filled {
		data = append([]float64(nil), h.samples...)
	} else {
		data = append([]float64(nil), h.samples[:h.writeIdx]...)
	}
	h.mu.Unlock()

	if len(data) == 0 {
		return Percentiles{}
	}
	sort.Float64s(data)
	return Percentiles{
		P50:   percentileOf(data, 0.50),
		P95:   percentileOf(data, 0.95),
		P99:   percentileOf(data, 0.99),
		Count: len(data),
	}
}

// percentileOf returns the p-th percentile (0..1) of sorted using linear
// interpolation between the two closest ranks.
func percentileOf(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Key identifies one histogram within a Recorder.
type Key struct {
	SessionID        string
	MeasurementPoint MeasurementPoint
}

// Recorder owns one Histogram per (session, measurement_point) pair,
// created lazily on first Record.
type Recorder struct {
	mu         sync.Mutex
	histograms map[Key]*Histogram
	windowSize int
}

// NewRecorder returns a Recorder whose histograms each retain windowSize
// samples.
func NewRecorder(windowSize int) *Recorder {
	return &Recorder{histograms: make(map[Key]*Histogram), windowSize: windowSize}
}

// Record appends value to the histogram for key, creating it if needed.
func (r *Recorder) Record(key Key, value float64) {
	r.mu.Lock()
	h, ok := r.histograms[key]
	if !ok {
		h = NewHistogram(r.windowSize)
		r.histograms[key] = h
	}
	r.mu.Unlock()
	h.Record(value)
}

// Snapshot returns the percentile snapshot for key, or the zero value if
// nothing has been recorded yet.
func (r *Recorder) Snapshot(key Key) Percentiles {
	r.mu.Lock()
	h, ok := r.histograms[key]
	r.mu.Unlock()
	if !ok {
		return Percentiles{}
	}
	return h.Snapshot()
}

// Keys returns every (session, measurement_point) pair currently tracked.
func (r *Recorder) Keys() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Key, 0, len(r.histograms))
	for k := range r.histograms {
		out = append(out, k)
	}
	return out
}
