// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package ipc

import (
	"context"
	"sync/atomic"
	"time"
)

// WorkerCrashed is returned/observed once a worker has missed enough
// consecutive heartbeats to be declared unresponsive: with heartbeat
// period T, 3×T without a beat declares the worker gone.
type WorkerCrashed struct {
	Period        time.Duration
	SinceLastBeat time.Duration
}

func (e *WorkerCrashed) Error() string {
	return "ipc: worker unresponsive (no heartbeat for " + e.SinceLastBeat.String() + ", period " + e.Period.String() + ")"
}

// HeartbeatSender periodically writes a KindHeartbeat frame onto a control
// Ring until ctx is cancelled, mirroring the cadence the Monitor side of
// the pair expects (SchedulerConfig.IPCHeartbeatPeriod).
type HeartbeatSender struct {
	ring   *Ring
	period time.Duration
}

// NewHeartbeatSender returns a sender writing to control at the given
// period.
func NewHeartbeatSender(control *Ring, period time.Duration) *HeartbeatSender {
	return &HeartbeatSender{ring: control, period: period}
}

// Run blocks, sending a heartbeat every period until ctx is done. A full
// ring (consumer hasn't drained the previous beat) is not an error here —
// the next tick will try again.
func (s *HeartbeatSender) Run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.ring.TryWrite(Frame{Kind: KindHeartbeat})
		}
	}
}

// Monitor watches a control Ring for incoming heartbeats and declares a
// worker unresponsive once 3×period has elapsed with no beat observed.
type Monitor struct {
	ring     *Ring
	period   time.Duration
	lastBeat atomic.Int64 // unix nanos
}

// NewMonitor returns a Monitor watching control. The heartbeat clock starts
// at construction time so a worker that never sends a single heartbeat is
// still caught after 3×period.
func NewMonitor(control *Ring, period time.Duration) *Monitor {
	m := &Monitor{ring: control, period: period}
	m.lastBeat.Store(time.Now().UnixNano())
	return m
}

// Poll drains any pending heartbeat frames (updating the last-seen clock)
// and reports WorkerCrashed if more than 3×period has elapsed since the
// last one observed. Intended to be called on the monitor's own poll
// cadence (e.g. every period/2).
func (m *Monitor) Poll() error {
	for {
		frame, ok, err := m.ring.TryRead()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if frame.Kind == KindHeartbeat {
			m.lastBeat.Store(time.Now().UnixNano())
		}
	}

	since := time.Since(time.Unix(0, m.lastBeat.Load()))
	if since > 3*m.period {
		return &WorkerCrashed{Period: m.period, SinceLastBeat: since}
	}
	return nil
}

// LastBeat returns when the last heartbeat was observed.
func (m *Monitor) LastBeat() time.Time {
	return time.Unix(0, m.lastBeat.Load())
}
