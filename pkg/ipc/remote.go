// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package ipc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/node"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

const (
	defaultSlots           = 64
	defaultDataSlotPayload = 1 << 20 // 1MiB, generous for one audio/video chunk or numpy tensor
	controlSlots           = 8
	controlSlotPayload     = HeaderSize + 16
)

// RemoteConfig names where a RemoteExecutor's shared-memory regions live and
// how often its heartbeat ticks — SchedulerConfig.IPCShmPath/
// IPCHeartbeatPeriod.
type RemoteConfig struct {
	ShmDir          string
	HeartbeatPeriod time.Duration
	Logger          logging.Logger
}

// RemoteExecutor drives an underlying node.Executor across the IPC ring
// substrate instead of calling it directly in the node's own task
// goroutine; the execution path for Multiproc and Docker placements.
// It implements node.Executor itself, so the session/scheduler
// code driving it is identical to the in-process path; only construction
// differs (see pkg/placement.Resolve).
//
// The worker side runs as a goroutine pair in this same process rather than
// a separate OS process or container — there is no concrete subprocess/
// container launcher here and no real pybridge.Interpreter
// backing a Python worker (see DESIGN.md) — but every item crosses through
// the same Ring/Frame wire protocol a genuine external worker
// would use: request/response regions are real OS shared memory opened
// under RemoteConfig.ShmDir, and every RuntimeData value is serialised and
// deserialised through EncodeRuntimeData/DecodeRuntimeData rather than
// passed by reference.
type RemoteExecutor struct {
	sessionID string
	nodeID    string

	underlying node.Executor
	info       node.Info
	logger     logging.Logger

	reqRegion, respRegion, ctrlRegion       *Region
	reqPath, respPath, ctrlPath             string
	reqRing, respRing, ctrlRing             *Ring
	heartbeat                               *HeartbeatSender
	monitor                                 *Monitor

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	crashed atomic.Bool
	lastErr atomic.Pointer[error]
}

var _ node.Executor = (*RemoteExecutor)(nil)

// NewRemoteExecutor wires underlying behind the IPC ring substrate: a
// request ring (session task -> worker), a response ring (worker -> session
// task), and a control ring carrying heartbeats, all backed by files under
// cfg.ShmDir named from sessionID/nodeID so concurrent sessions/nodes don't
// collide.
func NewRemoteExecutor(sessionID, nodeID string, underlying node.Executor, cfg RemoteConfig) (*RemoteExecutor, error) {
	if cfg.ShmDir == "" {
		cfg.ShmDir = "/dev/shm/streamrt"
	}
	if cfg.HeartbeatPeriod <= 0 {
		cfg.HeartbeatPeriod = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if err := os.MkdirAll(cfg.ShmDir, 0o755); err != nil {
		return nil, fmt.Errorf("ipc: create shm dir: %w", err)
	}

	base := fmt.Sprintf("%s-%s", sessionID, nodeID)
	re := &RemoteExecutor{
		sessionID:  sessionID,
		nodeID:     nodeID,
		underlying: underlying,
		info:       underlying.Info(),
		logger:     cfg.Logger,
		reqPath:    filepath.Join(cfg.ShmDir, base+".req"),
		respPath:   filepath.Join(cfg.ShmDir, base+".resp"),
		ctrlPath:   filepath.Join(cfg.ShmDir, base+".ctrl"),
		stop:       make(chan struct{}),
	}

	var err error
	re.reqRegion, re.reqRing, err = createRingRegion(re.reqPath, defaultSlots, defaultDataSlotPayload)
	if err != nil {
		return nil, err
	}
	re.respRegion, re.respRing, err = createRingRegion(re.respPath, defaultSlots, defaultDataSlotPayload)
	if err != nil {
		re.reqRegion.Close()
		return nil, err
	}
	re.ctrlRegion, re.ctrlRing, err = createRingRegion(re.ctrlPath, controlSlots, controlSlotPayload)
	if err != nil {
		re.reqRegion.Close()
		re.respRegion.Close()
		return nil, err
	}

	re.heartbeat = NewHeartbeatSender(re.ctrlRing, cfg.HeartbeatPeriod)
	re.monitor = NewMonitor(re.ctrlRing, cfg.HeartbeatPeriod)

	return re, nil
}

func createRingRegion(path string, slots, slotPayload int) (*Region, *Ring, error) {
	size := slots * (slotHeaderSize + slotPayload)
	region, err := CreateRegion(path, size)
	if err != nil {
		return nil, nil, fmt.Errorf("ipc: create region %s: %w", path, err)
	}
	ring, err := NewRing(region.Bytes(), slots, slotPayload)
	if err != nil {
		region.Close()
		return nil, nil, fmt.Errorf("ipc: build ring over %s: %w", path, err)
	}
	return region, ring, nil
}

// Info returns the underlying node's static contract, unchanged by running
// out-of-process.
func (re *RemoteExecutor) Info() node.Info { return re.info }

// IsStreaming mirrors the underlying node's declared mode.
func (re *RemoteExecutor) IsStreaming() bool { return re.info.IsStreaming }

// Initialize starts the worker-side goroutines (a control heartbeat sender
// plus the ingress/processing and egress pump pair, one goroutine per
// active ring) and initializes the underlying Executor before
// returning.
func (re *RemoteExecutor) Initialize(ctx context.Context) error {
	if err := re.underlying.Initialize(ctx); err != nil {
		return fmt.Errorf("remote node %q: worker-side initialize: %w", re.nodeID, err)
	}

	out := make(chan Frame, 8)

	re.wg.Add(3)
	go re.runHeartbeat()
	go re.runIngress(out)
	go re.runEgress(out)

	return nil
}

func (re *RemoteExecutor) runHeartbeat() {
	defer re.wg.Done()
	ctx, cancel := contextFromStop(re.stop)
	defer cancel()
	re.heartbeat.Run(ctx)
}

// runIngress is the worker's ingress pump: it polls the request ring,
// decodes each frame, drives the underlying Executor, and hands response
// frames to the egress pump over out. Closes out once a Shutdown request has
// been serviced.
func (re *RemoteExecutor) runIngress(out chan<- Frame) {
	defer re.wg.Done()
	defer close(out)

	for {
		select {
		case <-re.stop:
			return
		default:
		}

		frame, ok, err := re.reqRing.TryRead()
		if err != nil {
			re.recordCrash(fmt.Errorf("remote node %q: decode request frame: %w", re.nodeID, err))
			return
		}
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}

		switch frame.Kind {
		case KindData:
			re.handleProcess(frame, out)
		case KindFinishStreaming:
			re.handleFinishStreaming(out)
		case KindShutdown:
			// Underlying.Cleanup runs once, from RemoteExecutor.Cleanup after
			// this pump has exited — not here, to avoid a double Cleanup call.
			return
		}
	}
}

func (re *RemoteExecutor) handleProcess(frame Frame, out chan<- Frame) {
	data, err := DecodeRuntimeData(frame.Payload)
	if err != nil {
		out <- errorFrame(fmt.Errorf("decode request payload: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	outputs, err := re.underlying.Process(ctx, data)
	cancel()
	if err != nil {
		out <- errorFrame(fmt.Errorf("process: %w", err))
		return
	}
	re.emitOutputs(outputs, out)
	out <- Frame{Kind: KindData, Flags: FlagEndOfChunk}
}

func (re *RemoteExecutor) handleFinishStreaming(out chan<- Frame) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	outputs, err := re.underlying.FinishStreaming(ctx)
	cancel()
	if err != nil {
		out <- errorFrame(fmt.Errorf("finish_streaming: %w", err))
		return
	}
	re.emitOutputs(outputs, out)
	out <- Frame{Kind: KindFinishStreamingDone}
}

func (re *RemoteExecutor) emitOutputs(outputs []runtimedata.RuntimeData, out chan<- Frame) {
	for _, o := range outputs {
		payload, err := EncodeRuntimeData(o)
		if err != nil {
			out <- errorFrame(fmt.Errorf("encode output: %w", err))
			return
		}
		out <- Frame{Kind: KindData, Payload: payload}
	}
}

func errorFrame(err error) Frame {
	return Frame{Kind: KindError, Payload: []byte(err.Error())}
}

// runEgress is the worker's egress pump: it drains frames the ingress pump
// produced and publishes them on the response ring, retrying every
// millisecond while the ring is full.
func (re *RemoteExecutor) runEgress(in <-chan Frame) {
	defer re.wg.Done()
	for frame := range in {
		for {
			if err := re.respRing.TryWrite(frame); err == nil {
				break
			}
			select {
			case <-re.stop:
				return
			case <-time.After(time.Millisecond):
			}
		}
	}
}

// Process sends input to the worker over the request ring and blocks until
// the worker's terminator frame closes out this call's response batch.
func (re *RemoteExecutor) Process(ctx context.Context, input runtimedata.RuntimeData) ([]runtimedata.RuntimeData, error) {
	if re.crashed.Load() {
		return nil, re.crashErr()
	}

	payload, err := EncodeRuntimeData(input)
	if err != nil {
		return nil, fmt.Errorf("remote node %q: encode input: %w", re.nodeID, err)
	}
	if err := re.writeRequest(ctx, Frame{Kind: KindData, Payload: payload}); err != nil {
		return nil, err
	}
	return re.readResponses(ctx, KindData)
}

// FinishStreaming asks the worker to flush the underlying node exactly once
// and collects whatever outputs that flush produces.
func (re *RemoteExecutor) FinishStreaming(ctx context.Context) ([]runtimedata.RuntimeData, error) {
	if re.crashed.Load() {
		return nil, re.crashErr()
	}
	if err := re.writeRequest(ctx, Frame{Kind: KindFinishStreaming}); err != nil {
		return nil, err
	}
	return re.readResponses(ctx, KindFinishStreaming)
}

func (re *RemoteExecutor) writeRequest(ctx context.Context, frame Frame) error {
	for {
		if err := re.reqRing.TryWrite(frame); err == nil {
			return nil
		}
		if err := re.checkWorkerAlive(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

// checkWorkerAlive folds the two crash signals a blocked parent-side call
// watches: an already-recorded crash, and heartbeat loss on the control
// ring. Calls are serialized by the owning node task, so polling the
// monitor (a single-consumer ring read) is safe here.
func (re *RemoteExecutor) checkWorkerAlive() error {
	if re.crashed.Load() {
		return re.crashErr()
	}
	if err := re.monitor.Poll(); err != nil {
		re.recordCrash(fmt.Errorf("remote node %q: %w", re.nodeID, err))
		return re.crashErr()
	}
	return nil
}

// readResponses drains the response ring until it sees the terminator frame
// matching requestKind (KindData's terminator carries FlagEndOfChunk;
// KindFinishStreaming's is KindFinishStreamingDone), decoding every Data
// frame it sees along the way.
func (re *RemoteExecutor) readResponses(ctx context.Context, requestKind Kind) ([]runtimedata.RuntimeData, error) {
	var outputs []runtimedata.RuntimeData
	for {
		frame, ok, err := re.respRing.TryRead()
		if err != nil {
			return nil, fmt.Errorf("remote node %q: decode response frame: %w", re.nodeID, err)
		}
		if !ok {
			if err := re.checkWorkerAlive(); err != nil {
				return nil, err
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Millisecond):
				continue
			}
		}

		switch frame.Kind {
		case KindError:
			return nil, fmt.Errorf("remote node %q: %s", re.nodeID, string(frame.Payload))
		case KindFinishStreamingDone:
			return outputs, nil
		case KindData:
			if requestKind == KindData && frame.Flags.Has(FlagEndOfChunk) {
				return outputs, nil
			}
			if len(frame.Payload) == 0 {
				continue
			}
			data, err := DecodeRuntimeData(frame.Payload)
			if err != nil {
				return nil, fmt.Errorf("remote node %q: decode response payload: %w", re.nodeID, err)
			}
			outputs = append(outputs, data)
		}
	}
}

// Has reports whether f includes other's bit — used by readResponses to
// recognize the Data-batch terminator.
func (f Flag) Has(other Flag) bool { return f&other != 0 }

// Cleanup asks the worker to shut down, waits for its pumps to exit, then
// unmaps and removes its shared-memory region files.
func (re *RemoteExecutor) Cleanup(ctx context.Context) error {
	if !re.crashed.Load() {
		_ = re.writeRequest(ctx, Frame{Kind: KindShutdown})
	}

	re.stopOnce.Do(func() { close(re.stop) })

	done := make(chan struct{})
	go func() {
		re.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}

	var firstErr error
	for _, region := range []*Region{re.reqRegion, re.respRegion, re.ctrlRegion} {
		if err := region.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, path := range []string{re.reqPath, re.respPath, re.ctrlPath} {
		_ = os.Remove(path)
	}

	if cleanupErr := re.underlying.Cleanup(ctx); cleanupErr != nil && firstErr == nil {
		firstErr = cleanupErr
	}
	return firstErr
}

func (re *RemoteExecutor) recordCrash(err error) {
	if re.crashed.CompareAndSwap(false, true) {
		re.lastErr.Store(&err)
		re.logger.Errorw("remote node crashed", "node_id", re.nodeID, "session_id", re.sessionID, "error", err)
	}
}

func (re *RemoteExecutor) crashErr() error {
	if p := re.lastErr.Load(); p != nil {
		return *p
	}
	return &WorkerCrashed{}
}

func contextFromStop(stop <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
