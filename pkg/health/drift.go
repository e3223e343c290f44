// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package health

import (
	"math"
	"time"
)

// DriftSample is one observation fed to a DriftDetector: the wall-clock
// time an item arrived and the amount of media time it represents (e.g. an
// audio chunk's duration), so drift can be measured as accumulated
// real-time-vs-media-time skew rather than raw inter-arrival jitter alone.
type DriftSample struct {
	ArrivedAt time.Time
	MediaSpan time.Duration
}

// DriftReport summarizes a DriftDetector's state.
type DriftReport struct {
	// DriftMillis is how far real elapsed time has diverged from the sum of
	// MediaSpan seen so far: positive means the source is falling behind
	// real-time (media time is accumulating slower than wall-clock time).
	DriftMillis float64
	// JitterMillis is the standard deviation of inter-arrival intervals,
	// i.e. how unevenly spaced arrivals have been.
	JitterMillis float64
	SampleCount  int
}

// DriftDetector accumulates DriftSamples for one (session, stream) pair
// and reports drift/jitter.
type DriftDetector struct {
	start        time.Time
	mediaElapsed time.Duration
	lastArrival  time.Time
	intervals    []float64 // milliseconds, for jitter's stddev
	maxIntervals int
}

// NewDriftDetector returns a detector retaining up to maxIntervals recent
// inter-arrival samples for its jitter estimate.
func NewDriftDetector(maxIntervals int) *DriftDetector {
	if maxIntervals < 2 {
		maxIntervals = 2
	}
	return &DriftDetector{maxIntervals: maxIntervals}
}

// Observe records one sample.
func (d *DriftDetector) Observe(s DriftSample) {
	if d.start.IsZero() {
		d.start = s.ArrivedAt
		d.lastArrival = s.ArrivedAt
	} else {
		interval := s.ArrivedAt.Sub(d.lastArrival).Seconds() * 1000
		d.intervals = append(d.intervals, interval)
		if len(d.intervals) > d.maxIntervals {
			d.intervals = d.intervals[1:]
		}
		d.lastArrival = s.ArrivedAt
	}
	d.mediaElapsed += s.MediaSpan
}

// Report computes the current DriftReport.
func (d *DriftDetector) Report() DriftReport {
	if d.start.IsZero() {
		return DriftReport{}
	}
	wallElapsed := time.Since(d.start)
	driftMs := (wallElapsed - d.mediaElapsed).Seconds() * 1000

	return DriftReport{
		DriftMillis:  driftMs,
		JitterMillis: stddev(d.intervals),
		SampleCount:  len(d.intervals) + 1,
	}
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
