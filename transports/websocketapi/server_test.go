// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package websocketapi_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
	"github.com/rapidaai/streamrt/pkg/transport"
	"github.com/rapidaai/streamrt/transports/websocketapi"
)

type fakeSession struct {
	id      string
	outputs chan runtimedata.RuntimeData
	closed  chan struct{}
}

func (s *fakeSession) SessionID() string { return s.id }
func (s *fakeSession) SendInput(ctx context.Context, sourceNodeID string, data runtimedata.RuntimeData) error {
	return nil
}
func (s *fakeSession) RecvOutput(ctx context.Context) (runtimedata.RuntimeData, error) {
	select {
	case out, ok := <-s.outputs:
		if !ok {
			return runtimedata.RuntimeData{}, context.Canceled
		}
		return out, nil
	case <-s.closed:
		return runtimedata.RuntimeData{}, context.Canceled
	case <-ctx.Done():
		return runtimedata.RuntimeData{}, ctx.Err()
	}
}
func (s *fakeSession) Close(ctx context.Context) error {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return nil
}
func (s *fakeSession) IsActive() bool {
	select {
	case <-s.closed:
		return false
	default:
		return true
	}
}

type fakeTransport struct {
	sess *fakeSession
}

func (f *fakeTransport) ExecuteUnary(ctx context.Context, manifestJSON []byte, inputs map[string]runtimedata.RuntimeData) (map[string]runtimedata.RuntimeData, error) {
	return nil, nil
}
func (f *fakeTransport) CreateStreamSession(ctx context.Context, manifestJSON []byte) (transport.StreamSession, error) {
	return f.sess, nil
}
func (f *fakeTransport) Shutdown(ctx context.Context) error { return nil }

func TestServer_CreatesSessionAndEchoesOutput(t *testing.T) {
	sess := &fakeSession{id: "sess-1", outputs: make(chan runtimedata.RuntimeData, 1), closed: make(chan struct{})}
	ft := &fakeTransport{sess: sess}
	srv := websocketapi.NewServer(ft, logging.NewNop())

	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(websocketapi.Envelope{
		Type: websocketapi.TypeCreateSession,
		Data: mustJSON(t, websocketapi.CreateSessionData{Manifest: []byte(`{"version":"1"}`)}),
	}))

	var created websocketapi.Envelope
	require.NoError(t, conn.ReadJSON(&created))
	require.Equal(t, websocketapi.TypeSessionCreated, created.Type)

	sess.outputs <- runtimedata.NewText("hello", "utf-8", "en")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var out websocketapi.Envelope
	require.NoError(t, conn.ReadJSON(&out))
	require.Equal(t, websocketapi.TypeOutput, out.Type)
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
