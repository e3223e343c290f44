// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package sipapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

func TestBytesInt16RoundTrip(t *testing.T) {
	pcm := []int16{0, 1, -1, 32767, -32768, 100}
	require.Equal(t, pcm, bytesToInt16(int16ToBytes(pcm)))
}

type fakeStreamSession struct {
	active bool
}

func (f *fakeStreamSession) SessionID() string { return "call-1" }
func (f *fakeStreamSession) SendInput(ctx context.Context, sourceNodeID string, data runtimedata.RuntimeData) error {
	return nil
}
func (f *fakeStreamSession) RecvOutput(ctx context.Context) (runtimedata.RuntimeData, error) {
	<-ctx.Done()
	return runtimedata.RuntimeData{}, ctx.Err()
}
func (f *fakeStreamSession) Close(ctx context.Context) error { return nil }
func (f *fakeStreamSession) IsActive() bool                  { return f.active }

func TestNewMediaSession_BindsLocalUDPPort(t *testing.T) {
	m, err := newMediaSession("127.0.0.1:0", 12345, &fakeStreamSession{}, logging.NewNop())
	require.NoError(t, err)
	defer m.Close()
	require.NotZero(t, m.LocalPort())
}
