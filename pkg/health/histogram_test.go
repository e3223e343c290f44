// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistogram_SnapshotEmpty(t *testing.T) {
	h := NewHistogram(10)
	snap := h.Snapshot()
	assert.Equal(t, 0, snap.Count)
}

func TestHistogram_PercentilesOverUniformSamples(t *testing.T) {
	h := NewHistogram(100)
	for i := 1; i <= 100; i++ {
		h.Record(float64(i))
	}
	snap := h.Snapshot()
	require.Equal(t, 100, snap.Count)
	assert.InDelta(t, 50, snap.P50, 1)
	assert.InDelta(t, 95, snap.P95, 1)
	assert.InDelta(t, 99, snap.P99, 1)
}

func TestHistogram_WindowEvictsOldSamples(t *testing.T) {
	h := NewHistogram(3)
	h.Record(1)
	h.Record(2)
	h.Record(3)
	h.Record(100) // evicts the 1

	snap := h.Snapshot()
	require.Equal(t, 3, snap.Count)
	assert.GreaterOrEqual(t, snap.P50, 2.0)
}

func TestRecorder_LazilyCreatesPerKeyHistograms(t *testing.T) {
	r := NewRecorder(50)
	key := Key{SessionID: "s1", MeasurementPoint: MeasurementNodeProcess}

	assert.Equal(t, Percentiles{}, r.Snapshot(key))

	r.Record(key, 10)
	r.Record(key, 20)

	snap := r.Snapshot(key)
	assert.Equal(t, 2, snap.Count)
	assert.Len(t, r.Keys(), 1)
}

func TestRecorder_SeparatesKeysBySessionAndPoint(t *testing.T) {
	r := NewRecorder(50)
	a := Key{SessionID: "s1", MeasurementPoint: MeasurementNodeProcess}
	b := Key{SessionID: "s1", MeasurementPoint: MeasurementEndToEnd}

	r.Record(a, 1)
	r.Record(b, 2)
	r.Record(b, 4)

	assert.Equal(t, 1, r.Snapshot(a).Count)
	assert.Equal(t, 2, r.Snapshot(b).Count)
	assert.Len(t, r.Keys(), 2)
}
