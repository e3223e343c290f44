// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rapidaai/streamrt/pkg/manifest"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
	"github.com/rapidaai/streamrt/pkg/session"
	"github.com/rapidaai/streamrt/pkg/transport"
)

// streamSessionHandle adapts pkg/session.Session to transport.StreamSession,
// additionally owning the session's admission lease and the Graph needed to
// validate SendInput's target node.
type streamSessionHandle struct {
	id      string
	sess    *session.Session
	runner  *PipelineRunner
	graph   manifest.Graph
	runDone chan error
	active  int32

	// seqs assigns each source node a monotonic per-source sequence so
	// downstream ordered_merge reassembly and the dropout detector see the
	// contiguous numbering they key on.
	seqMu sync.Mutex
	seqs  map[string]uint64

	closeOnce sync.Once
	closeErr  error
}

var _ transport.StreamSession = (*streamSessionHandle)(nil)

// CreateStreamSession parses manifestJSON, runs admission control and
// per-node placement resolution, then starts the session's node tasks in
// the background.
func (r *PipelineRunner) CreateStreamSession(ctx context.Context, manifestJSON []byte) (transport.StreamSession, error) {
	m, err := manifest.Parse(manifestJSON)
	if err != nil {
		return nil, err
	}
	g, err := manifest.BuildGraph(m)
	if err != nil {
		return nil, err
	}
	// Fail fast on an unsatisfiable placement before taking an admission
	// slot; session.New resolves placement again per node (via
	// WithHostCapabilities) to actually construct each node behind its
	// resolved executor.
	if _, err := r.resolvePlacements(g); err != nil {
		return nil, fmt.Errorf("placement: %w", err)
	}

	id := r.newSessionID()

	if r.admit != nil {
		admitCtx, cancel := context.WithTimeout(ctx, r.admissionTimeout())
		defer cancel()
		if err := r.admit.TryAdmit(admitCtx, id); err != nil {
			return nil, err
		}
	}

	sess, err := session.New(id, g, r.registry,
		session.WithLogger(r.logger),
		session.WithNodeTimeouts(session.NodeTimeouts{Process: r.cfg.NodeProcessTimeout}),
		session.WithIdleTimeout(r.cfg.SessionIdleTimeout),
		session.WithMaxDuration(r.cfg.SessionMaxDuration),
		session.WithHostCapabilities(r.host),
		session.WithRemoteConfig(r.remoteConfig()),
		session.WithHealthBus(r.bus),
		session.WithHealthTelemetry(r.recorder, r.observer),
	)
	if err != nil {
		if r.admit != nil {
			_ = r.admit.Release(context.Background(), id)
		}
		return nil, err
	}

	h := &streamSessionHandle{
		id:      id,
		sess:    sess,
		runner:  r,
		graph:   g,
		runDone: make(chan error, 1),
		active:  1,
		seqs:    make(map[string]uint64),
	}

	r.mu.Lock()
	r.sessions[id] = h
	r.mu.Unlock()

	go func() {
		err := sess.Run(context.Background())
		atomic.StoreInt32(&h.active, 0)
		h.runDone <- err
		if r.admit != nil {
			_ = r.admit.Release(context.Background(), id)
		}
		r.removeSession(id)
	}()

	return h, nil
}

func (h *streamSessionHandle) SessionID() string { return h.id }

// SendInput feeds data into sourceNodeID's ingress queue; the source node's
// task processes it and fans the results out to every downstream edge.
// Each source gets its own monotonic sequence, stamped here so callers
// pushing plain media never have to manage numbering themselves.
func (h *streamSessionHandle) SendInput(ctx context.Context, sourceNodeID string, data runtimedata.RuntimeData) error {
	if _, ok := h.graph.Nodes[sourceNodeID]; !ok {
		return fmt.Errorf("unknown node %q", sourceNodeID)
	}
	h.seqMu.Lock()
	seq := h.seqs[sourceNodeID]
	h.seqs[sourceNodeID] = seq + 1
	h.seqMu.Unlock()
	return h.sess.PushExternal(ctx, sourceNodeID, data, seq)
}

func (h *streamSessionHandle) RecvOutput(ctx context.Context) (runtimedata.RuntimeData, error) {
	item, err := h.sess.PopOutput(ctx)
	if err != nil {
		return runtimedata.RuntimeData{}, err
	}
	out, _ := item.Payload.(runtimedata.RuntimeData)
	return out, nil
}

func (h *streamSessionHandle) Close(ctx context.Context) error {
	h.closeOnce.Do(func() {
		h.sess.Shutdown()
		select {
		case err := <-h.runDone:
			h.closeErr = err
		case <-ctx.Done():
			h.closeErr = ctx.Err()
		}
	})
	return h.closeErr
}

func (h *streamSessionHandle) IsActive() bool {
	return atomic.LoadInt32(&h.active) == 1
}
