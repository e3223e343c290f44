// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package store

import (
	"context"

	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/manifest"
	"github.com/rapidaai/streamrt/pkg/transport"
)

// RecordingTransport wraps a transport.PipelineTransport and persists every
// streaming session's lifecycle (create/complete/fail) through a Store, so
// a session row always exists for whatever actually ran. Recording hangs
// off the single PipelineTransport choke point every transport adapter
// already calls through, instead of off each adapter individually.
type RecordingTransport struct {
	transport.PipelineTransport
	store  Store
	logger logging.Logger
}

// NewRecordingTransport wraps next so every CreateStreamSession call also
// creates a SessionRecord, and every session Close marks it completed (or
// failed, if Close returned an error).
func NewRecordingTransport(next transport.PipelineTransport, store Store, logger logging.Logger) *RecordingTransport {
	return &RecordingTransport{PipelineTransport: next, store: store, logger: logger}
}

func (t *RecordingTransport) CreateStreamSession(ctx context.Context, manifestJSON []byte) (transport.StreamSession, error) {
	sess, err := t.PipelineTransport.CreateStreamSession(ctx, manifestJSON)
	if err != nil {
		return nil, err
	}

	name, version := manifestIdentity(manifestJSON)
	if err := t.store.Create(ctx, sess.SessionID(), name, version); err != nil {
		t.logger.Warnw("store: failed recording session creation", "session", sess.SessionID(), "error", err)
	}

	return &recordingSession{StreamSession: sess, store: t.store, logger: t.logger}, nil
}

func manifestIdentity(manifestJSON []byte) (name, version string) {
	m, err := manifest.Parse(manifestJSON)
	if err != nil {
		return "unknown", "unknown"
	}
	name = "unknown"
	if n, ok := m.Metadata["name"].(string); ok && n != "" {
		name = n
	}
	return name, m.Version
}

type recordingSession struct {
	transport.StreamSession
	store  Store
	logger logging.Logger
}

func (s *recordingSession) Close(ctx context.Context) error {
	err := s.StreamSession.Close(ctx)
	recordCtx := context.Background()
	if err != nil {
		if failErr := s.store.Fail(recordCtx, s.SessionID(), err.Error()); failErr != nil {
			s.logger.Warnw("store: failed recording session failure", "session", s.SessionID(), "error", failErr)
		}
		return err
	}
	if completeErr := s.store.Complete(recordCtx, s.SessionID()); completeErr != nil {
		s.logger.Warnw("store: failed recording session completion", "session", s.SessionID(), "error", completeErr)
	}
	return err
}

var _ transport.PipelineTransport = (*RecordingTransport)(nil)
var _ transport.StreamSession = (*recordingSession)(nil)
