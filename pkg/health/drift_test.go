// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDriftDetector_ReportEmptyBeforeFirstObserve(t *testing.T) {
	d := NewDriftDetector(10)
	assert.Equal(t, DriftReport{}, d.Report())
}

func TestDriftDetector_NoJitterForEvenlySpacedArrivals(t *testing.T) {
	d := NewDriftDetector(10)
	start := time.Now().Add(-500 * time.Millisecond)

	d.Observe(DriftSample{ArrivedAt: start, MediaSpan: 0})
	d.Observe(DriftSample{ArrivedAt: start.Add(100 * time.Millisecond), MediaSpan: 100 * time.Millisecond})
	d.Observe(DriftSample{ArrivedAt: start.Add(200 * time.Millisecond), MediaSpan: 100 * time.Millisecond})
	d.Observe(DriftSample{ArrivedAt: start.Add(300 * time.Millisecond), MediaSpan: 100 * time.Millisecond})
	d.Observe(DriftSample{ArrivedAt: start.Add(400 * time.Millisecond), MediaSpan: 100 * time.Millisecond})

	report := d.Report()
	assert.Equal(t, 5, report.SampleCount)
	assert.InDelta(t, 0, report.JitterMillis, 1)
}

func TestDriftDetector_JitterReflectsUnevenSpacing(t *testing.T) {
	d := NewDriftDetector(10)
	start := time.Now().Add(-1 * time.Second)

	d.Observe(DriftSample{ArrivedAt: start, MediaSpan: 0})
	d.Observe(DriftSample{ArrivedAt: start.Add(50 * time.Millisecond), MediaSpan: 50 * time.Millisecond})
	d.Observe(DriftSample{ArrivedAt: start.Add(250 * time.Millisecond), MediaSpan: 50 * time.Millisecond})
	d.Observe(DriftSample{ArrivedAt: start.Add(300 * time.Millisecond), MediaSpan: 50 * time.Millisecond})

	report := d.Report()
	assert.Greater(t, report.JitterMillis, 0.0)
}

func TestDriftDetector_MaxIntervalsBoundsWindow(t *testing.T) {
	d := NewDriftDetector(2)
	start := time.Now().Add(-1 * time.Second)
	for i := 0; i < 5; i++ {
		d.Observe(DriftSample{ArrivedAt: start.Add(time.Duration(i) * 100 * time.Millisecond), MediaSpan: 100 * time.Millisecond})
	}
	assert.Len(t, d.intervals, 2)
}
