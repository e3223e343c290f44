// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/admission"
	"github.com/rapidaai/streamrt/pkg/health"
	"github.com/rapidaai/streamrt/pkg/ipc"
	"github.com/rapidaai/streamrt/pkg/manifest"
	"github.com/rapidaai/streamrt/pkg/node"
	"github.com/rapidaai/streamrt/pkg/placement"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

// NodeTimeouts bounds a single node's work, distinct from the session-wide
// deadlines (SchedulerConfig.SessionIdleTimeout/SessionMaxDuration). The
// scheduler fills Process from SchedulerConfig.NodeProcessTimeout.
type NodeTimeouts struct {
	Process time.Duration
}

// Session is one running instance of a manifest graph: one goroutine
// ("task") per node, wired together by Edges, driven until every sink has
// observed end-of-stream or the session is cancelled. Each task loops
// consuming its incoming edges and producing to its outgoing ones, with
// guaranteed cleanup on every exit path.
type Session struct {
	ID     string
	Graph  manifest.Graph
	Logger logging.Logger

	registry *node.Registry
	edges    map[edgeKey]*Edge
	ingress  map[string]*Edge
	nodes    map[string]node.Executor
	timeouts NodeTimeouts

	host         admission.HostCapabilities
	remoteConfig ipc.RemoteConfig
	bus          *health.Bus
	recorder     *health.Recorder
	observer     health.Observer
	monitor      *health.StreamMonitor

	// finishOnce guards FinishStreaming so a node's lifecycle-end fires it
	// exactly once even if runNode's defer and an error-path return both
	// reach it.
	finishOnce map[string]*sync.Once

	// Outputs collects every item produced by a sink node (one with no
	// outgoing connections), for callers driving the session externally
	// (StreamSession.RecvOutput).
	Outputs *Edge

	idleTimeout time.Duration
	maxDuration time.Duration

	cancel    context.CancelFunc
	shutdown  int32
	wg        sync.WaitGroup
	lastInput atomic.Int64 // unix nanos of last externally-pushed item

	mu   sync.Mutex
	errs []error
}

type edgeKey struct {
	from, to string
}

// Option configures a Session at construction.
type Option func(*Session)

// WithLogger overrides the session's logger (default: a no-op logger).
func WithLogger(l logging.Logger) Option {
	return func(s *Session) { s.Logger = l }
}

// WithNodeTimeouts sets per-node timeouts; zero fields keep the default
// (no timeout).
func WithNodeTimeouts(t NodeTimeouts) Option {
	return func(s *Session) { s.timeouts = t }
}

// WithIdleTimeout bounds how long the session may go without receiving an
// externally-pushed item before it is torn down.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Session) { s.idleTimeout = d }
}

// WithMaxDuration bounds the session's total lifetime regardless of
// activity.
func WithMaxDuration(d time.Duration) Option {
	return func(s *Session) { s.maxDuration = d }
}

// WithHostCapabilities declares what this process can offer placement
// resolution; nodes whose resolved placement this host can't
// satisfy fail session construction instead of silently running in-process.
func WithHostCapabilities(h admission.HostCapabilities) Option {
	return func(s *Session) { s.host = h }
}

// WithRemoteConfig names where Multiproc/Docker-placed nodes' IPC shared
// memory regions live; unused when every node in the
// graph resolves to Inproc.
func WithRemoteConfig(cfg ipc.RemoteConfig) Option {
	return func(s *Session) { s.remoteConfig = cfg }
}

// WithHealthBus attaches a health.Bus so the session can raise alerts (e.g.
// AlertQueueOverflow from an edge's drop counter) alongside its own
// scheduler-level detectors. It also arms the session's passive taps: a
// StreamMonitor observing ingress, egress, and every internal edge.
func WithHealthBus(b *health.Bus) Option {
	return func(s *Session) { s.bus = b }
}

// WithHealthTelemetry mirrors the taps' raw measurements (inter-arrival
// histograms, drift reports) onto a Recorder and an Observer (e.g. the
// PrometheusExporter). Only meaningful alongside WithHealthBus.
func WithHealthTelemetry(rec *health.Recorder, obs health.Observer) Option {
	return func(s *Session) {
		s.recorder = rec
		s.observer = obs
	}
}

// New constructs a Session for graph, instantiating one Executor per node
// via registry.Build. Every internal edge and every source's ingress queue
// is a blocking (PolicyBlock) 64-item queue; the manifest does not set edge
// capacity or policy. Only the sink Outputs queue is drop-oldest (256 items).
func New(id string, g manifest.Graph, registry *node.Registry, opts ...Option) (*Session, error) {
	s := &Session{
		ID:         id,
		Graph:      g,
		Logger:     logging.NewNop(),
		registry:   registry,
		edges:      make(map[edgeKey]*Edge),
		ingress:    make(map[string]*Edge),
		nodes:      make(map[string]node.Executor),
		finishOnce: make(map[string]*sync.Once),
	}
	for _, o := range opts {
		o(s)
	}

	if s.bus != nil {
		s.monitor = health.NewStreamMonitor(id, s.bus, health.MonitorConfig{
			Recorder: s.recorder,
			Observer: s.observer,
		})
	}

	// Construct nodes in topological order so construction is deterministic
	// and reproducible across runs of the same manifest. Each node's
	// placement decides whether it runs in-process or behind
	// an ipc.RemoteExecutor; a placement this host can't honor fails session
	// construction rather than silently falling back to in-process.
	for _, id := range g.Order {
		n := g.Nodes[id]
		ex, err := registry.Build(n.NodeType, n.Params)
		if err != nil {
			return nil, fmt.Errorf("building node %q: %w", id, err)
		}
		ex, err = s.placeExecutor(id, n, ex)
		if err != nil {
			return nil, fmt.Errorf("placing node %q: %w", id, err)
		}
		s.nodes[id] = ex
		s.finishOnce[id] = &sync.Once{}
	}

	for from, children := range g.Children {
		for _, to := range children {
			edge := NewEdge(64, PolicyBlock)
			s.wireDropAlert(edge, from, to)
			s.edges[edgeKey{from, to}] = edge
		}
	}

	// Every source node gets an ingress queue so externally-pushed data runs
	// through the source's own Process before fanning out, exactly like data
	// arriving on an internal edge would for any other node.
	for _, id := range g.Sources {
		edge := NewEdge(64, PolicyBlock)
		s.wireDropAlert(edge, "ingress", id)
		s.ingress[id] = edge
	}

	s.Outputs = NewEdge(256, PolicyDropOldest)
	s.wireDropAlert(s.Outputs, "", "outputs")

	return s, nil
}

// placeExecutor resolves n's placement against s.host and wraps ex behind an
// ipc.RemoteExecutor for Multiproc/Docker placements; Inproc (or an absent
// placement default) passes ex through unchanged.
func (s *Session) placeExecutor(id string, n manifest.Node, ex node.Executor) (node.Executor, error) {
	res, err := placement.Resolve(n, s.host)
	if err != nil {
		return nil, err
	}
	switch res.Kind {
	case manifest.ExecutorInproc, "":
		return ex, nil
	case manifest.ExecutorMultiproc, manifest.ExecutorDocker:
		return ipc.NewRemoteExecutor(s.ID, id, ex, s.remoteConfig)
	default:
		return nil, fmt.Errorf("unsupported executor placement %q", res.Kind)
	}
}

// wireDropAlert registers an OnDrop handler that raises health.AlertQueueOverflow
// whenever edge evicts an item under PolicyDropOldest; a no-op when no
// health.Bus was attached via WithHealthBus.
func (s *Session) wireDropAlert(edge *Edge, from, to string) {
	if s.bus == nil {
		return
	}
	edge.OnDrop(func(dropped uint64) {
		alert := health.Alert{
			SessionID: s.ID,
			NodeID:    to,
			Type:      health.AlertQueueOverflow,
			Detail:    fmt.Sprintf("edge %s->%s dropped %d item(s)", from, to, dropped),
			Data:      health.QueueOverflowData{Edge: from + "->" + to, Dropped: dropped},
		}
		if s.monitor != nil {
			alert.RelativeMS = s.monitor.RelativeMS()
		}
		s.bus.Raise(alert)
	})
}

// Edge returns the bounded queue between from and to, if the connection
// exists in the graph.
func (s *Session) Edge(from, to string) (*Edge, bool) {
	e, ok := s.edges[edgeKey{from, to}]
	return e, ok
}

// PushExternal feeds data into a source node's ingress queue from outside
// the graph — the entry point a transport adapter uses to drive a pipeline
// with live input. The source node's own task processes each item, so a
// source behaves identically whether it is fed externally or (in a unary
// run) seeded directly. It also resets the session's idle-timeout clock,
// since external input is the only activity WithIdleTimeout tracks.
func (s *Session) PushExternal(ctx context.Context, nodeID string, data runtimedata.RuntimeData, sequence uint64) error {
	edge, ok := s.ingress[nodeID]
	if !ok {
		return fmt.Errorf("node %q is not a source in session %s", nodeID, s.ID)
	}
	s.lastInput.Store(time.Now().UnixNano())
	if s.monitor != nil {
		s.monitor.ObserveIngress(nodeID, data, sequence)
	}
	return edge.Push(ctx, Item{Source: nodeID, Sequence: sequence, Payload: data})
}

// Run starts one task goroutine per node and blocks until every task exits
// — either because every sink drained its upstream to completion, the
// parent ctx was cancelled, or Shutdown was called. Cleanup is guaranteed:
// every node's Cleanup is invoked exactly once regardless of how the
// session ends.
func (s *Session) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	defer cancel()

	if s.maxDuration > 0 {
		timer := time.AfterFunc(s.maxDuration, s.Shutdown)
		defer timer.Stop()
	}

	if s.idleTimeout > 0 {
		s.lastInput.Store(time.Now().UnixNano())
		stopIdle := make(chan struct{})
		defer close(stopIdle)
		go s.watchIdle(ctx, stopIdle)
	}

	for _, id := range s.Graph.Order {
		s.wg.Add(1)
		go s.runNode(ctx, id)
	}

	s.wg.Wait()

	if s.monitor != nil {
		s.monitor.Flush()
	}

	for id, ex := range s.nodes {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := ex.Cleanup(cleanupCtx); err != nil {
			s.recordErr(fmt.Errorf("cleanup node %q: %w", id, err))
		}
		cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errs) > 0 {
		return fmt.Errorf("session %s completed with %d node error(s): %v", s.ID, len(s.errs), s.errs[0])
	}
	return nil
}

// runNode drives a single node: initialize once, then consume a merged
// stream of upstream items, call Process, and fan out results to every
// downstream edge. One pump goroutine per incoming edge preserves
// per-source FIFO while interleaving sources without bias; a pump retires
// when its edge closes or delivers EndOfStream, and the node's own clean
// close runs once every pump has retired. Sources (no parents) consume
// their ingress queue directly instead.
func (s *Session) runNode(ctx context.Context, id string) {
	defer s.wg.Done()

	ex := s.nodes[id]
	children := s.Graph.Children[id]
	if err := ex.Initialize(ctx); err != nil {
		s.recordErr(fmt.Errorf("initialize node %q: %w", id, err))
		s.closeOutgoing(id)
		return
	}

	parents := s.Graph.Parents[id]
	// finishAndClose runs exactly once per node regardless of which return
	// path is taken, flushing the node and propagating a single EndOfStream
	// barrier downstream before its outgoing edges close.
	defer s.finishAndClose(id, ex, children)

	if len(parents) == 0 {
		// Source node: consume the ingress queue external producers
		// (transport adapters) push into. An externally-pushed EndOfStream
		// ends the source cleanly; the deferred finishAndClose then runs
		// FinishStreaming and propagates EndOfStream to its children.
		ing := s.ingress[id]
		for {
			item, err := ing.Pop(ctx)
			if err != nil {
				return
			}
			if isEndOfStream(item) {
				return
			}
			s.lastInput.Store(time.Now().UnixNano())
			if err := s.process(ctx, id, ex, children, item); err != nil {
				s.recordErr(err)
				return
			}
		}
	}

	// nodeCtx releases the pumps when this node exits early on a process
	// error, so they don't sit blocked on a send nobody will receive.
	nodeCtx, cancelPumps := context.WithCancel(ctx)
	defer cancelPumps()

	in := make(chan Item)
	var pumps sync.WaitGroup
	for _, parentID := range parents {
		edge, ok := s.edges[edgeKey{parentID, id}]
		if !ok {
			continue
		}
		pumps.Add(1)
		go func(edge *Edge) {
			defer pumps.Done()
			for {
				item, err := edge.Pop(nodeCtx)
				if err != nil {
					return
				}
				if isEndOfStream(item) {
					// Consumed, not re-forwarded: this node emits its own
					// single EndOfStream marker from finishAndClose once
					// every upstream has ended.
					return
				}
				select {
				case in <- item:
				case <-nodeCtx.Done():
					return
				}
			}
		}(edge)
	}
	go func() {
		pumps.Wait()
		close(in)
	}()

	merge := NewOrderedMerge()
	useMerge := s.Graph.Nodes[id].SequenceField != ""

	for item := range in {
		s.lastInput.Store(time.Now().UnixNano())

		items := []Item{item}
		if useMerge {
			merge.Offer(item)
			items = merge.Drain()
		}
		for _, it := range items {
			if err := s.process(ctx, id, ex, children, it); err != nil {
				s.recordErr(err)
				return
			}
		}
	}
}

// isEndOfStream reports whether item carries the Control/EndOfStream marker
// finishAndClose propagates downstream.
func isEndOfStream(item Item) bool {
	data, ok := item.Payload.(runtimedata.RuntimeData)
	if !ok {
		return false
	}
	return data.Kind() == runtimedata.KindControl && data.ControlKind == runtimedata.ControlEndOfStream
}

// watchIdle shuts the session down once no externally-pushed item has
// arrived for idleTimeout, checking at a quarter of that interval so the
// cutoff is never more than 25% late.
func (s *Session) watchIdle(ctx context.Context, stop <-chan struct{}) {
	interval := s.idleTimeout / 4
	if interval <= 0 {
		interval = s.idleTimeout
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			last := time.Unix(0, s.lastInput.Load())
			if time.Since(last) >= s.idleTimeout {
				s.Logger.Infow("session idle timeout", "session_id", s.ID)
				s.Shutdown()
				return
			}
		}
	}
}

func (s *Session) process(ctx context.Context, id string, ex node.Executor, children []string, item Item) error {
	data, ok := item.Payload.(runtimedata.RuntimeData)
	if !ok {
		return fmt.Errorf("node %q: edge item payload is not RuntimeData", id)
	}

	procCtx := ctx
	if s.timeouts.Process > 0 {
		var cancel context.CancelFunc
		procCtx, cancel = context.WithTimeout(ctx, s.timeouts.Process)
		defer cancel()
	}
	outputs, err := ex.Process(procCtx, data)
	if err != nil {
		return fmt.Errorf("node %q process: %w", id, err)
	}

	s.fanOut(ctx, id, children, outputs, item.Sequence)
	return nil
}

// fanOut pushes every item in outputs to id's sink Outputs queue (no
// children) or clones it by reference onto every child edge; shared by
// process and finishAndClose's
// FinishStreaming/EndOfStream fan-out so both paths push identically.
func (s *Session) fanOut(ctx context.Context, id string, children []string, outputs []runtimedata.RuntimeData, sequence uint64) {
	for _, out := range outputs {
		if len(children) == 0 {
			if s.monitor != nil {
				s.monitor.ObserveEgress(id, out)
			}
			if err := s.Outputs.Push(ctx, Item{Source: id, Sequence: sequence, Payload: out}); err != nil {
				s.recordPushErr(ctx, "outputs", id, err)
			}
			continue
		}
		for _, childID := range children {
			edge := s.edges[edgeKey{id, childID}]
			clone := out.Clone()
			if s.monitor != nil {
				s.monitor.ObserveEdge(id, childID, clone)
			}
			if err := edge.Push(ctx, Item{Source: id, Sequence: sequence, Payload: clone}); err != nil {
				s.recordPushErr(ctx, childID, id, err)
			}
		}
	}
}

// recordPushErr records a downstream push failure, except for the benign
// teardown cases: the session context ending mid-push, or the target edge
// already closed because its consumer finished first.
func (s *Session) recordPushErr(ctx context.Context, to, from string, err error) {
	if ctx.Err() != nil || errors.Is(err, ErrEdgeClosed) {
		return
	}
	s.recordErr(fmt.Errorf("push %s->%s: %w", from, to, err))
}

// finishAndClose flushes node id exactly once via FinishStreaming (when it
// declares IsStreaming), fans out whatever that flush produces, then
// propagates a single Control/EndOfStream marker to every child before
// closing id's outgoing edges. Guarded by finishOnce so a
// node's normal completion and an error-path return can never both run it.
func (s *Session) finishAndClose(id string, ex node.Executor, children []string) {
	s.finishOnce[id].Do(func() {
		// A bounded context here, not the (possibly cancelled) session
		// context: the flush and EndOfStream pushes must still be attempted
		// on shutdown, but can't wedge on a full edge whose consumer has
		// already exited.
		finishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if ex.IsStreaming() {
			outputs, err := ex.FinishStreaming(finishCtx)
			if err != nil {
				s.recordErr(fmt.Errorf("finish_streaming node %q: %w", id, err))
			} else if len(outputs) > 0 {
				s.fanOut(finishCtx, id, children, outputs, 0)
			}
		}
		eos := runtimedata.NewControl(runtimedata.ControlEndOfStream, "")
		s.fanOut(finishCtx, id, children, []runtimedata.RuntimeData{eos}, 0)
	})
	s.closeOutgoing(id)
}

func (s *Session) closeOutgoing(id string) {
	children := s.Graph.Children[id]
	for _, childID := range children {
		if edge, ok := s.edges[edgeKey{id, childID}]; ok {
			edge.Close()
		}
	}
	if len(children) == 0 {
		s.Outputs.Close()
	}
}

// PopOutput blocks until a sink node has produced an item, ctx is
// cancelled, or the session has no more sinks left to produce (Outputs
// closed and drained).
func (s *Session) PopOutput(ctx context.Context) (Item, error) {
	return s.Outputs.Pop(ctx)
}

// Shutdown cancels the session's context, triggering every node task to
// unwind and Cleanup to run. Safe to call multiple times and from any
// goroutine.
func (s *Session) Shutdown() {
	if !atomic.CompareAndSwapInt32(&s.shutdown, 0, 1) {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// IsShutdown reports whether Shutdown has been called.
func (s *Session) IsShutdown() bool {
	return atomic.LoadInt32(&s.shutdown) == 1
}

func (s *Session) recordErr(err error) {
	s.Logger.Errorw("session node error", "session_id", s.ID, "error", err)
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
}
