// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package health

import (
	"sync"
	"time"

	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

// Observer receives raw measurements alongside the alert path.
// PrometheusExporter implements it; a nil Observer is skipped.
type Observer interface {
	ObserveLatency(sessionID, nodeID string, point MeasurementPoint, valueMillis float64)
	ObserveDrift(sessionID string, report DriftReport)
}

// StreamThresholds bundles every detector threshold a StreamMonitor
// applies to one session's media.
type StreamThresholds struct {
	Audio AudioThresholds
	Video VideoThresholds

	// DriftMS raises AlertExcessiveDrift once |drift| exceeds it;
	// JitterMS raises AlertExcessiveJitter once inter-arrival stddev
	// exceeds it. Both are judged only after driftMinSamples arrivals so a
	// stream's first chunks can't trip them.
	DriftMS  float64
	JitterMS float64
}

// DefaultStreamThresholds are the defaults a Session uses when nothing
// overrides them.
func DefaultStreamThresholds() StreamThresholds {
	return StreamThresholds{
		Audio:    DefaultAudioThresholds(),
		Video:    DefaultVideoThresholds(),
		DriftMS:  500,
		JitterMS: 120,
	}
}

// driftMinSamples is how many arrivals the drift/jitter detectors wait for
// before judging thresholds.
const driftMinSamples = 10

// driftIntervalWindow bounds the jitter estimate's inter-arrival window.
const driftIntervalWindow = 256

// MonitorConfig wires a StreamMonitor's optional collaborators. Every
// field may be zero: a monitor with only a Bus still raises alerts.
type MonitorConfig struct {
	Recorder   *Recorder
	Observer   Observer
	Thresholds *StreamThresholds // nil picks DefaultStreamThresholds
}

// StreamMonitor is one session's passive tap set: ingress (where data
// enters the session), egress (where a sink's output leaves it), and each
// internal edge. Every point records inter-arrival time into the Recorder
// and Observer; the ingress point additionally runs the audio/video
// quality analyzers and the drift/jitter detector — media enters the
// session exactly once, so analyzing it once there keeps each condition a
// single alert instead of one per tap point.
//
// All methods are safe for concurrent use; node tasks call them from
// their own goroutines.
type StreamMonitor struct {
	sessionID  string
	bus        *Bus
	recorder   *Recorder
	observer   Observer
	thresholds StreamThresholds
	started    time.Time

	mu          sync.Mutex
	audio       map[string]*AudioAnalyzer
	video       map[string]*VideoAnalyzer
	drift       *DriftDetector
	driftCount  int
	lastArrival map[string]time.Time
}

// NewStreamMonitor returns a monitor for one session, raising alerts on
// bus and mirroring measurements onto cfg.Recorder/cfg.Observer when set.
func NewStreamMonitor(sessionID string, bus *Bus, cfg MonitorConfig) *StreamMonitor {
	thresholds := DefaultStreamThresholds()
	if cfg.Thresholds != nil {
		thresholds = *cfg.Thresholds
	}
	return &StreamMonitor{
		sessionID:   sessionID,
		bus:         bus,
		recorder:    cfg.Recorder,
		observer:    cfg.Observer,
		thresholds:  thresholds,
		started:     time.Now(),
		audio:       make(map[string]*AudioAnalyzer),
		video:       make(map[string]*VideoAnalyzer),
		drift:       NewDriftDetector(driftIntervalWindow),
		lastArrival: make(map[string]time.Time),
	}
}

// RelativeMS returns the session's own clock: milliseconds elapsed since
// the monitor (and so the session) started.
func (m *StreamMonitor) RelativeMS() uint64 {
	return uint64(time.Since(m.started).Milliseconds())
}

// ObserveIngress taps one externally-pushed item entering the session at
// nodeID: inter-arrival metrics, drift/jitter, and the media quality
// analyzers. Control records pass untapped.
func (m *StreamMonitor) ObserveIngress(nodeID string, data runtimedata.RuntimeData, sequence uint64) {
	if data.Kind() == runtimedata.KindControl {
		return
	}
	now := time.Now()

	m.mu.Lock()
	m.recordArrival(MeasurementIngress, nodeID, now)
	m.observeDrift(data, now)
	var events []Event
	switch data.Kind() {
	case runtimedata.KindAudio:
		a, ok := m.audio[nodeID]
		if !ok {
			a = NewAudioAnalyzer(m.thresholds.Audio)
			m.audio[nodeID] = a
		}
		events, _ = a.Analyze(data, sequence)
	case runtimedata.KindVideo:
		v, ok := m.video[nodeID]
		if !ok {
			v = NewVideoAnalyzer(m.thresholds.Video)
			m.video[nodeID] = v
		}
		events, _ = v.Analyze(data)
	}
	m.mu.Unlock()

	for _, ev := range events {
		m.raiseEvent(nodeID, ev)
	}
}

// ObserveEgress taps one item leaving the session through sink nodeID's
// output queue, recording inter-arrival metrics.
func (m *StreamMonitor) ObserveEgress(nodeID string, data runtimedata.RuntimeData) {
	if data.Kind() == runtimedata.KindControl {
		return
	}
	m.mu.Lock()
	m.recordArrival(MeasurementEgress, nodeID, time.Now())
	m.mu.Unlock()
}

// ObserveEdge taps one item crossing the from->to edge, recording
// inter-arrival metrics keyed by the consumer node.
func (m *StreamMonitor) ObserveEdge(from, to string, data runtimedata.RuntimeData) {
	if data.Kind() == runtimedata.KindControl {
		return
	}
	m.mu.Lock()
	m.recordArrival(MeasurementEdge, from+"->"+to, time.Now())
	m.mu.Unlock()
}

// Flush ends every analyzer's in-progress state (e.g. a silence run still
// open when the stream ends) and raises whatever that produces. Called
// once as the session shuts down.
func (m *StreamMonitor) Flush() {
	m.mu.Lock()
	type pending struct {
		nodeID string
		ev     Event
	}
	var out []pending
	for nodeID, a := range m.audio {
		for _, ev := range a.Flush() {
			out = append(out, pending{nodeID: nodeID, ev: ev})
		}
	}
	m.mu.Unlock()

	for _, p := range out {
		m.raiseEvent(p.nodeID, p.ev)
	}
}

// raiseEvent addresses a detector event to this session and raises it on
// the bus with the stream-relative timestamp filled in.
func (m *StreamMonitor) raiseEvent(nodeID string, ev Event) {
	m.bus.Raise(Alert{
		SessionID:  m.sessionID,
		NodeID:     nodeID,
		Type:       ev.Type,
		Data:       ev.Data,
		RelativeMS: m.RelativeMS(),
	})
}

// recordArrival updates the point's inter-arrival clock and mirrors the
// interval onto the recorder/observer. Caller holds m.mu.
func (m *StreamMonitor) recordArrival(point MeasurementPoint, nodeID string, now time.Time) {
	key := string(point) + "/" + nodeID
	if last, ok := m.lastArrival[key]; ok {
		intervalMS := now.Sub(last).Seconds() * 1000
		if m.recorder != nil {
			m.recorder.Record(Key{SessionID: m.sessionID, MeasurementPoint: point}, intervalMS)
		}
		if m.observer != nil {
			m.observer.ObserveLatency(m.sessionID, nodeID, point, intervalMS)
		}
	}
	m.lastArrival[key] = now
}

// observeDrift feeds one ingress arrival's media span into the drift
// detector and checks thresholds. Caller holds m.mu; the resulting raises
// happen inline (the Bus serializes itself).
func (m *StreamMonitor) observeDrift(data runtimedata.RuntimeData, now time.Time) {
	span := mediaSpanOf(data)
	m.drift.Observe(DriftSample{ArrivedAt: now, MediaSpan: span})
	m.driftCount++
	if m.driftCount < driftMinSamples {
		return
	}

	report := m.drift.Report()
	if m.observer != nil {
		m.observer.ObserveDrift(m.sessionID, report)
	}
	if m.thresholds.DriftMS > 0 && abs(report.DriftMillis) > m.thresholds.DriftMS {
		m.raiseEvent("", Event{Type: AlertExcessiveDrift, Data: DriftData{DriftMS: report.DriftMillis}})
	}
	if m.thresholds.JitterMS > 0 && report.JitterMillis > m.thresholds.JitterMS {
		m.raiseEvent("", Event{Type: AlertExcessiveJitter, Data: JitterData{JitterMS: report.JitterMillis}})
	}
}

// mediaSpanOf derives the media time one item represents: an audio
// chunk's sample span; zero for everything else (video drift tracking
// would need frame-rate metadata the Video variant doesn't carry).
func mediaSpanOf(data runtimedata.RuntimeData) time.Duration {
	if data.Kind() == runtimedata.KindAudio && data.SampleRate > 0 {
		return time.Duration(float64(data.NumSamples) / float64(data.SampleRate) * float64(time.Second))
	}
	return 0
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
