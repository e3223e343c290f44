// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package scheduler implements the streaming pipeline scheduler:
// admission control, placement resolution, and the two execution modes
// (unary / streaming) behind the PipelineTransport facade (pkg/transport).
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rapidaai/streamrt/internal/config"
	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/admission"
	"github.com/rapidaai/streamrt/pkg/health"
	"github.com/rapidaai/streamrt/pkg/ipc"
	"github.com/rapidaai/streamrt/pkg/manifest"
	"github.com/rapidaai/streamrt/pkg/node"
	"github.com/rapidaai/streamrt/pkg/placement"
	"github.com/rapidaai/streamrt/pkg/transport"
)

// PipelineRunner implements transport.PipelineTransport. It is the process-
// wide entry point transport adapters (gRPC, WebSocket, WebRTC, SIP,
// telephony) drive pipelines through.
type PipelineRunner struct {
	registry *node.Registry
	admit    *admission.Controller
	host     admission.HostCapabilities
	cfg      config.SchedulerConfig
	logger   logging.Logger
	bus      *health.Bus
	recorder *health.Recorder
	observer health.Observer

	mu       sync.Mutex
	sessions map[string]*streamSessionHandle
}

var _ transport.PipelineTransport = (*PipelineRunner)(nil)

// Option configures a PipelineRunner at construction.
type Option func(*PipelineRunner)

// WithLogger overrides the runner's logger (default: no-op).
func WithLogger(l logging.Logger) Option {
	return func(r *PipelineRunner) { r.logger = l }
}

// WithHostCapabilities declares what this scheduler process can offer
// placement resolution: GPU, memory, docker.
func WithHostCapabilities(h admission.HostCapabilities) Option {
	return func(r *PipelineRunner) { r.host = h }
}

// WithHealthBus attaches a health.Bus every streaming session spawns with,
// so per-edge conditions (e.g. AlertQueueOverflow) and detectors share one
// delivery/coalescing path.
func WithHealthBus(b *health.Bus) Option {
	return func(r *PipelineRunner) { r.bus = b }
}

// WithHealthTelemetry mirrors every streaming session's tap measurements
// (inter-arrival histograms, drift reports) onto rec and obs — typically a
// health.Recorder plus the PrometheusExporter. Only meaningful alongside
// WithHealthBus.
func WithHealthTelemetry(rec *health.Recorder, obs health.Observer) Option {
	return func(r *PipelineRunner) {
		r.recorder = rec
		r.observer = obs
	}
}

// New constructs a PipelineRunner. admit may be nil, disabling distributed
// admission control (every CreateStreamSession call is admitted locally
// without a capacity check) — used by execute_unary-only deployments and by
// tests.
func New(registry *node.Registry, admit *admission.Controller, cfg config.SchedulerConfig, opts ...Option) *PipelineRunner {
	r := &PipelineRunner{
		registry: registry,
		admit:    admit,
		cfg:      cfg,
		logger:   logging.NewNop(),
		sessions: make(map[string]*streamSessionHandle),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// resolvePlacements checks every node's placement is satisfiable on this
// host before a graph is ever run — a manifest that names a GPU node on a
// GPU-less scheduler fails at admission time, not mid-stream.
func (r *PipelineRunner) resolvePlacements(g manifest.Graph) (map[string]placement.Resolution, error) {
	out := make(map[string]placement.Resolution, len(g.Nodes))
	for id, n := range g.Nodes {
		res, err := placement.Resolve(n, r.host)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", id, err)
		}
		out[id] = res
	}
	return out, nil
}

// placeExecutor wraps ex behind an ipc.RemoteExecutor when res names an
// out-of-process placement (Multiproc/Docker), or rejects the
// placement outright when this process has no way to honor it; Inproc
// placements pass ex through unchanged.
func (r *PipelineRunner) placeExecutor(callID, nodeID string, ex node.Executor, res placement.Resolution) (node.Executor, error) {
	switch res.Kind {
	case manifest.ExecutorInproc, "":
		return ex, nil
	case manifest.ExecutorMultiproc, manifest.ExecutorDocker:
		return ipc.NewRemoteExecutor(callID, nodeID, ex, r.remoteConfig())
	default:
		return nil, fmt.Errorf("unsupported executor placement %q", res.Kind)
	}
}

func (r *PipelineRunner) remoteConfig() ipc.RemoteConfig {
	return ipc.RemoteConfig{
		ShmDir:          r.cfg.IPCShmPath,
		HeartbeatPeriod: r.cfg.IPCHeartbeatPeriod,
		Logger:          r.logger,
	}
}

// Shutdown tears down every active streaming session and releases their
// admission slots.
func (r *PipelineRunner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	handles := make([]*streamSessionHandle, 0, len(r.sessions))
	for _, h := range r.sessions {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	for _, h := range handles {
		if err := h.Close(ctx); err != nil {
			r.logger.Warnw("error closing session during shutdown", "session_id", h.SessionID(), "error", err)
		}
	}
	return nil
}

func (r *PipelineRunner) newSessionID() string {
	return uuid.NewString()
}

func (r *PipelineRunner) admissionTimeout() time.Duration {
	if r.cfg.AdmissionTimeout > 0 {
		return r.cfg.AdmissionTimeout
	}
	return 2 * time.Second
}

func (r *PipelineRunner) removeSession(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}
