// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package telephonyapi_test

import (
	"context"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
	"github.com/rapidaai/streamrt/pkg/transport"
	"github.com/rapidaai/streamrt/transports/telephonyapi"
)

type fakeSession struct {
	mu     sync.Mutex
	inputs []runtimedata.RuntimeData
	closed bool
}

func (f *fakeSession) SessionID() string { return "sess-1" }
func (f *fakeSession) SendInput(ctx context.Context, sourceNodeID string, data runtimedata.RuntimeData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, data)
	return nil
}
func (f *fakeSession) RecvOutput(ctx context.Context) (runtimedata.RuntimeData, error) {
	<-ctx.Done()
	return runtimedata.RuntimeData{}, ctx.Err()
}
func (f *fakeSession) Close(ctx context.Context) error { f.closed = true; return nil }
func (f *fakeSession) IsActive() bool                  { return !f.closed }

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

func TestServer_TwilioStatusCallback_AdmitsAndForwardsThenClosesOnTerminalStatus(t *testing.T) {
	sess := &fakeSession{}
	ft := &fakeTransport{sess: sess}
	srv := telephonyapi.NewServer(ft, logging.NewNop(), []byte(`{"version":"1"}`))

	post := func(status string) *httptest.ResponseRecorder {
		form := url.Values{"CallSid": {"CA1"}, "From": {"+1"}, "To": {"+2"}, "CallStatus": {status}}
		req := httptest.NewRequest("POST", "/twilio/status", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		srv.TwilioStatusCallback(rec, req)
		return rec
	}

	rec := post("ringing")
	require.Equal(t, 200, rec.Code)
	require.False(t, sess.closed)

	rec = post("completed")
	require.Equal(t, 200, rec.Code)
	require.True(t, sess.closed)
	require.GreaterOrEqual(t, len(sess.inputs), 2)
}
