// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/streamrt/internal/config"
	"github.com/rapidaai/streamrt/pkg/node"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
	"github.com/rapidaai/streamrt/pkg/scheduler"
)

type doublerNode struct {
	node.UnimplementedStreaming
}

func newDoubler(raw map[string]interface{}) (node.Executor, error) {
	return &doublerNode{}, nil
}
func (n *doublerNode) Initialize(ctx context.Context) error { return nil }
func (n *doublerNode) Cleanup(ctx context.Context) error    { return nil }
func (n *doublerNode) Info() node.Info {
	return node.Info{NodeType: "doubler", Mode: node.ModeUnary}
}
func (n *doublerNode) Process(ctx context.Context, in runtimedata.RuntimeData) ([]runtimedata.RuntimeData, error) {
	text := string(in.Bytes())
	return []runtimedata.RuntimeData{runtimedata.NewText(text+text, "utf-8", "")}, nil
}

func testRegistry() *node.Registry {
	r := node.NewRegistry()
	r.Register("doubler", newDoubler)
	return r
}

const linearManifest = `{
	"version": "v1",
	"nodes": [
		{"id": "src", "node_type": "doubler"},
		{"id": "sink", "node_type": "doubler"}
	],
	"connections": [{"from": "src", "to": "sink"}]
}`

func TestExecuteUnary_PropagatesThroughChain(t *testing.T) {
	r := scheduler.New(testRegistry(), nil, config.DefaultSchedulerConfig())

	out, err := r.ExecuteUnary(context.Background(), []byte(linearManifest), map[string]runtimedata.RuntimeData{
		"src": runtimedata.NewText("ab", "utf-8", ""),
	})
	require.NoError(t, err)
	require.Contains(t, out, "sink")
	assert.Equal(t, "abababab", string(out["sink"].Bytes()))
}

func TestExecuteUnary_UnknownInputNode(t *testing.T) {
	r := scheduler.New(testRegistry(), nil, config.DefaultSchedulerConfig())
	_, err := r.ExecuteUnary(context.Background(), []byte(linearManifest), map[string]runtimedata.RuntimeData{
		"ghost": runtimedata.NewText("x", "utf-8", ""),
	})
	require.Error(t, err)
}

func TestCreateStreamSession_RoundTrip(t *testing.T) {
	r := scheduler.New(testRegistry(), nil, config.DefaultSchedulerConfig())

	sess, err := r.CreateStreamSession(context.Background(), []byte(linearManifest))
	require.NoError(t, err)
	assert.NotEmpty(t, sess.SessionID())
	assert.True(t, sess.IsActive())

	require.NoError(t, sess.SendInput(context.Background(), "src", runtimedata.NewText("hi", "utf-8", "")))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out, err := sess.RecvOutput(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hihihihi", string(out.Bytes()))

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second)
	defer closeCancel()
	require.NoError(t, sess.Close(closeCtx))
	assert.False(t, sess.IsActive())
}

func TestPipelineRunner_Shutdown_ClosesAllSessions(t *testing.T) {
	r := scheduler.New(testRegistry(), nil, config.DefaultSchedulerConfig())
	sess, err := r.CreateStreamSession(context.Background(), []byte(linearManifest))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))
	assert.False(t, sess.IsActive())
}
