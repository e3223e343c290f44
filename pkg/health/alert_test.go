// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package health

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertType_BitValuesAreDistinctPowersOfTwo(t *testing.T) {
	bits := []AlertType{
		AlertSilence, AlertLowVolume, AlertClipping, AlertChannelImbalance,
		AlertAudioDropout, AlertVideoFreeze, AlertBlackFrame, AlertExcessiveDrift,
		AlertExcessiveJitter, AlertWorkerUnresponsive,
	}
	assert.Equal(t, AlertType(1), AlertSilence)

	seen := AlertType(0)
	for _, b := range bits {
		assert.Zero(t, seen&b, "bit %d collides with an earlier flag", b)
		seen |= b
	}
}

func TestAlertType_Has(t *testing.T) {
	combo := AlertSilence | AlertClipping
	assert.True(t, combo.Has(AlertSilence))
	assert.True(t, combo.Has(AlertClipping))
	assert.False(t, combo.Has(AlertLowVolume))
}

type recordingSink struct {
	mu     sync.Mutex
	alerts []Alert
}

func (s *recordingSink) HandleAlert(a Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

func TestBus_DeliversToAllSinks(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	bus := NewBus(0, a, b)

	bus.Raise(Alert{SessionID: "s1", NodeID: "n1", Type: AlertSilence})

	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
}

func TestBus_CoalescesWithinWindow(t *testing.T) {
	sink := &recordingSink{}
	bus := NewBus(time.Hour, sink)

	now := time.Now()
	bus.Raise(Alert{SessionID: "s1", NodeID: "n1", Type: AlertSilence, RaisedAt: now})
	bus.Raise(Alert{SessionID: "s1", NodeID: "n1", Type: AlertSilence, RaisedAt: now.Add(time.Second)})

	assert.Equal(t, 1, sink.count())
}

func TestBus_DeliversAgainAfterWindowElapses(t *testing.T) {
	sink := &recordingSink{}
	bus := NewBus(10 * time.Millisecond, sink)

	now := time.Now()
	bus.Raise(Alert{SessionID: "s1", NodeID: "n1", Type: AlertSilence, RaisedAt: now})
	bus.Raise(Alert{SessionID: "s1", NodeID: "n1", Type: AlertSilence, RaisedAt: now.Add(20 * time.Millisecond)})

	assert.Equal(t, 2, sink.count())
}

func TestBus_DistinctKeysNotCoalesced(t *testing.T) {
	sink := &recordingSink{}
	bus := NewBus(time.Hour, sink)

	now := time.Now()
	bus.Raise(Alert{SessionID: "s1", NodeID: "n1", Type: AlertSilence, RaisedAt: now})
	bus.Raise(Alert{SessionID: "s1", NodeID: "n2", Type: AlertSilence, RaisedAt: now})
	bus.Raise(Alert{SessionID: "s1", NodeID: "n1", Type: AlertClipping, RaisedAt: now})

	assert.Equal(t, 3, sink.count())
}

func TestAlertType_StringNamesEveryBit(t *testing.T) {
	assert.Equal(t, "silence", AlertSilence.String())
	assert.Equal(t, "silence+clipping", (AlertSilence | AlertClipping).String())
	assert.Equal(t, "none", AlertNone.String())
}

func TestAlert_WireShape(t *testing.T) {
	a := Alert{
		SessionID:  "sess-1",
		NodeID:     "mic",
		Type:       AlertSilence,
		Data:       SilenceData{DurationMS: 950, RMSDB: -120},
		RaisedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		RelativeMS: 1500,
	}

	wire := a.Wire()
	assert.Equal(t, "silence", wire.Type)
	assert.Equal(t, "2025-06-01T12:00:00Z", wire.TS)
	assert.Equal(t, uint64(1500), wire.RelativeMS)
	assert.Equal(t, "sess-1", wire.SessionID)

	payload, err := json.Marshal(wire)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"type":"silence"`)
	assert.Contains(t, string(payload), `"relative_ms":1500`)
	assert.Contains(t, string(payload), `"duration_ms":950`)
	assert.Contains(t, string(payload), `"session_id":"sess-1"`)
}

func TestBus_AddSinkAtRuntime(t *testing.T) {
	bus := NewBus(0)
	sink := &recordingSink{}
	bus.AddSink(sink)

	bus.Raise(Alert{SessionID: "s1", Type: AlertSilence})
	require.Equal(t, 1, sink.count())
}
