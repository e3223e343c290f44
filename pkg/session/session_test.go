// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/streamrt/pkg/manifest"
	"github.com/rapidaai/streamrt/pkg/node"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
	"github.com/rapidaai/streamrt/pkg/session"
)

// passThroughNode re-emits whatever it receives, optionally recording every
// item it saw for assertions.
type passThroughNode struct {
	node.UnimplementedStreaming
	mu   sync.Mutex
	seen []runtimedata.RuntimeData
}

func (n *passThroughNode) Initialize(ctx context.Context) error { return nil }
func (n *passThroughNode) Cleanup(ctx context.Context) error    { return nil }
func (n *passThroughNode) Info() node.Info {
	return node.Info{NodeType: "pass_through", Mode: node.ModeUnary}
}
func (n *passThroughNode) Process(ctx context.Context, in runtimedata.RuntimeData) ([]runtimedata.RuntimeData, error) {
	n.mu.Lock()
	n.seen = append(n.seen, in)
	n.mu.Unlock()
	return []runtimedata.RuntimeData{in}, nil
}

func buildLinearSession(t *testing.T) (*session.Session, *passThroughNode) {
	t.Helper()

	m, err := manifest.Parse([]byte(`{
		"version": "v1",
		"nodes": [
			{"id": "src", "node_type": "pass_through"},
			{"id": "sink", "node_type": "pass_through"}
		],
		"connections": [{"from": "src", "to": "sink"}]
	}`))
	require.NoError(t, err)

	g, err := manifest.BuildGraph(m)
	require.NoError(t, err)

	sinkNode := &passThroughNode{}
	reg := node.NewRegistry()
	built := 0
	reg.Register("pass_through", func(raw map[string]interface{}) (node.Executor, error) {
		built++
		// g.Order is deterministic (Kahn's algorithm, lexicographic
		// tie-break): "sink" depends on "src", so it is always the second
		// node constructed.
		if built == 2 {
			return sinkNode, nil
		}
		return &passThroughNode{}, nil
	})

	s, err := session.New("sess-1", g, reg)
	require.NoError(t, err)
	return s, sinkNode
}

func TestSession_RunPropagatesDataToSink(t *testing.T) {
	s, sink := buildLinearSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	text := runtimedata.NewText("hello", "utf-8", "en")
	require.NoError(t, s.PushExternal(context.Background(), "src", text, 0))

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.seen) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("session did not shut down after cancellation")
	}
}

func TestSession_ShutdownIsIdempotent(t *testing.T) {
	s, _ := buildLinearSession(t)
	ctx := context.Background()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	s.Shutdown()
	s.Shutdown() // must not panic

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session did not shut down")
	}
	assert.True(t, s.IsShutdown())
}

// streamingSinkNode is a streaming (FinishStreaming-driven) terminal node
// used to assert the FinishStreaming-once/EndOfStream-propagation contract.
type streamingSinkNode struct {
	mu           sync.Mutex
	finishCalls  int
	finishOutput []runtimedata.RuntimeData
}

func (n *streamingSinkNode) Initialize(ctx context.Context) error { return nil }
func (n *streamingSinkNode) Cleanup(ctx context.Context) error    { return nil }
func (n *streamingSinkNode) IsStreaming() bool                    { return true }
func (n *streamingSinkNode) Info() node.Info {
	return node.Info{NodeType: "streaming_sink", Mode: node.ModeStreaming, IsStreaming: true}
}

func (n *streamingSinkNode) Process(ctx context.Context, in runtimedata.RuntimeData) ([]runtimedata.RuntimeData, error) {
	return []runtimedata.RuntimeData{in}, nil
}

func (n *streamingSinkNode) FinishStreaming(ctx context.Context) ([]runtimedata.RuntimeData, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finishCalls++
	return n.finishOutput, nil
}

func TestSession_FinishStreamingRunsOnceAndPropagatesEndOfStream(t *testing.T) {
	m, err := manifest.Parse([]byte(`{
		"version": "v1",
		"nodes": [
			{"id": "src", "node_type": "pass_through"},
			{"id": "mid", "node_type": "streaming_sink"}
		],
		"connections": [{"from": "src", "to": "mid"}]
	}`))
	require.NoError(t, err)
	g, err := manifest.BuildGraph(m)
	require.NoError(t, err)

	sink := &streamingSinkNode{
		finishOutput: []runtimedata.RuntimeData{runtimedata.NewText("flushed", "utf-8", "en")},
	}
	reg := node.NewRegistry()
	reg.Register("pass_through", func(raw map[string]interface{}) (node.Executor, error) {
		return &passThroughNode{}, nil
	})
	reg.Register("streaming_sink", func(raw map[string]interface{}) (node.Executor, error) {
		return sink, nil
	})

	s, err := session.New("sess-finish", g, reg)
	require.NoError(t, err)

	ctx := context.Background()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.NoError(t, s.PushExternal(context.Background(), "src", runtimedata.NewText("hello", "utf-8", "en"), 0))

	popCtx, popCancel := context.WithTimeout(context.Background(), time.Second)
	defer popCancel()

	item, err := s.PopOutput(popCtx)
	require.NoError(t, err)
	data, ok := item.Payload.(runtimedata.RuntimeData)
	require.True(t, ok)
	assert.Equal(t, "hello", string(data.Bytes()))

	// Close mid's upstream edge directly (simulating "src" having finished
	// producing) rather than cancelling the whole session, so mid's clean-
	// close path — FinishStreaming once, then EndOfStream — runs
	// deterministically instead of racing the session-wide shutdown signal.
	edge, ok := s.Edge("src", "mid")
	require.True(t, ok)
	edge.Close()

	var tail []runtimedata.RuntimeData
	for {
		item, err := s.PopOutput(popCtx)
		if err != nil {
			break
		}
		data, ok := item.Payload.(runtimedata.RuntimeData)
		require.True(t, ok)
		tail = append(tail, data)
		if data.Kind() == runtimedata.KindControl {
			break
		}
	}

	require.NotEmpty(t, tail)
	last := tail[len(tail)-1]
	assert.Equal(t, runtimedata.KindControl, last.Kind())
	assert.Equal(t, runtimedata.ControlEndOfStream, last.ControlKind)

	var sawFlushed bool
	for _, it := range tail {
		if it.Kind() == runtimedata.KindText && string(it.Bytes()) == "flushed" {
			sawFlushed = true
		}
	}
	assert.True(t, sawFlushed, "FinishStreaming's output should have reached Outputs before EndOfStream")

	s.Shutdown()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session did not shut down")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 1, sink.finishCalls, "FinishStreaming must be called exactly once per node")
}

func TestSession_IdleTimeoutShutsDownSession(t *testing.T) {
	m, err := manifest.Parse([]byte(`{
		"version": "v1",
		"nodes": [{"id": "src", "node_type": "pass_through"}]
	}`))
	require.NoError(t, err)
	g, err := manifest.BuildGraph(m)
	require.NoError(t, err)

	reg := node.NewRegistry()
	reg.Register("pass_through", func(raw map[string]interface{}) (node.Executor, error) {
		return &passThroughNode{}, nil
	})

	s, err := session.New("sess-idle", g, reg, session.WithIdleTimeout(40*time.Millisecond))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("idle session should have shut itself down")
	}
}
