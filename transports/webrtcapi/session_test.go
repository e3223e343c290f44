// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package webrtcapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
	"github.com/rapidaai/streamrt/pkg/transport"
)

func TestBytesInt16RoundTrip(t *testing.T) {
	pcm := []int16{0, 1, -1, 32767, -32768, 12345}
	require.Equal(t, pcm, bytesToInt16(int16ToBytes(pcm)))
}

type fakeStreamSession struct {
	id     string
	active bool
}

func (f *fakeStreamSession) SessionID() string { return f.id }
func (f *fakeStreamSession) SendInput(ctx context.Context, sourceNodeID string, data runtimedata.RuntimeData) error {
	return nil
}
func (f *fakeStreamSession) RecvOutput(ctx context.Context) (runtimedata.RuntimeData, error) {
	<-ctx.Done()
	return runtimedata.RuntimeData{}, ctx.Err()
}
func (f *fakeStreamSession) Close(ctx context.Context) error { f.active = false; return nil }
func (f *fakeStreamSession) IsActive() bool                  { return f.active }

var _ transport.StreamSession = (*fakeStreamSession)(nil)

func TestNewSession_ConstructsPeerConnectionWithLocalOpusTrack(t *testing.T) {
	stream := &fakeStreamSession{id: "sess-1", active: true}
	sess, err := NewSession(stream, logging.NewNop(), nil)
	require.NoError(t, err)
	require.NotNil(t, sess.PeerConnection())
	require.NoError(t, sess.Close())
}
