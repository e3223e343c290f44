// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package health

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusExporter mirrors Recorder/Bus observations onto Prometheus
// collectors. Unlike the usual promauto process-global vars, the
// exporter takes an explicit
// prometheus.Registerer so a test (or a second scheduler instance in the
// same process) can use its own registry instead of colliding on the
// default one.
type PrometheusExporter struct {
	nodeLatency      *prometheus.HistogramVec
	endToEndLatency  *prometheus.HistogramVec
	ipcLatency       *prometheus.HistogramVec
	schedulerLatency *prometheus.HistogramVec
	interArrival     *prometheus.HistogramVec
	alertsTotal      *prometheus.CounterVec
	driftMillis      *prometheus.GaugeVec
	jitterMillis     *prometheus.GaugeVec
}

// NewPrometheusExporter constructs and registers the exporter's collectors
// against reg.
func NewPrometheusExporter(reg prometheus.Registerer) *PrometheusExporter {
	buckets := []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

	e := &PrometheusExporter{
		nodeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "streamrt_node_process_latency_ms",
			Help:    "Per-node Process() latency in milliseconds",
			Buckets: buckets,
		}, []string{"session_id", "node_id"}),
		endToEndLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "streamrt_end_to_end_latency_ms",
			Help:    "End-to-end pipeline latency in milliseconds",
			Buckets: buckets,
		}, []string{"session_id"}),
		ipcLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "streamrt_ipc_round_trip_latency_ms",
			Help:    "Multiproc node IPC round-trip latency in milliseconds",
			Buckets: buckets,
		}, []string{"session_id", "node_id"}),
		schedulerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "streamrt_scheduler_queue_latency_ms",
			Help:    "Time an item waited in an edge queue before a node picked it up, in milliseconds",
			Buckets: buckets,
		}, []string{"session_id", "node_id"}),
		interArrival: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "streamrt_stream_interarrival_ms",
			Help:    "Inter-arrival time at a session tap point (ingress/egress/edge), in milliseconds",
			Buckets: buckets,
		}, []string{"session_id", "point", "node_id"}),
		alertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamrt_alerts_total",
			Help: "Health alerts raised, by session/node/type",
		}, []string{"session_id", "node_id", "alert_type"}),
		driftMillis: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "streamrt_stream_drift_millis",
			Help: "Wall-clock-vs-media-time drift per session stream, in milliseconds",
		}, []string{"session_id"}),
		jitterMillis: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "streamrt_stream_jitter_millis",
			Help: "Inter-arrival jitter (stddev) per session stream, in milliseconds",
		}, []string{"session_id"}),
	}

	reg.MustRegister(
		e.nodeLatency,
		e.endToEndLatency,
		e.ipcLatency,
		e.schedulerLatency,
		e.interArrival,
		e.alertsTotal,
		e.driftMillis,
		e.jitterMillis,
	)
	return e
}

// ObserveLatency records value (milliseconds) for the given measurement
// point, routing to the matching collector by point.
func (e *PrometheusExporter) ObserveLatency(sessionID, nodeID string, point MeasurementPoint, valueMillis float64) {
	switch point {
	case MeasurementNodeProcess:
		e.nodeLatency.WithLabelValues(sessionID, nodeID).Observe(valueMillis)
	case MeasurementEndToEnd:
		e.endToEndLatency.WithLabelValues(sessionID).Observe(valueMillis)
	case MeasurementIPCRoundTrip:
		e.ipcLatency.WithLabelValues(sessionID, nodeID).Observe(valueMillis)
	case MeasurementSchedulerQueue:
		e.schedulerLatency.WithLabelValues(sessionID, nodeID).Observe(valueMillis)
	case MeasurementIngress, MeasurementEgress, MeasurementEdge:
		e.interArrival.WithLabelValues(sessionID, string(point), nodeID).Observe(valueMillis)
	}
}

// ObserveDrift records the latest DriftReport for a session stream.
func (e *PrometheusExporter) ObserveDrift(sessionID string, report DriftReport) {
	e.driftMillis.WithLabelValues(sessionID).Set(report.DriftMillis)
	e.jitterMillis.WithLabelValues(sessionID).Set(report.JitterMillis)
}

// HandleAlert implements Sink, incrementing the alerts counter per
// individual bit set in a.Type so a multi-condition Alert is counted once
// per condition it represents.
func (e *PrometheusExporter) HandleAlert(a Alert) {
	for _, bit := range allAlertBits {
		if a.Type.Has(bit) {
			e.alertsTotal.WithLabelValues(a.SessionID, a.NodeID, alertTypeName(bit)).Inc()
		}
	}
}

