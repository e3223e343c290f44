// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package telephonyapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
	"github.com/rapidaai/streamrt/pkg/transport"
)

// Server admits one transport.StreamSession per call, keyed by the
// provider's call id, and forwards every status-callback event into the
// session as Text RuntimeData until a terminal event closes it.
type Server struct {
	transport    transport.PipelineTransport
	logger       logging.Logger
	manifestJSON []byte

	mu       sync.Mutex
	sessions map[string]transport.StreamSession
}

// NewServer constructs a telephonyapi.Server admitting every call with
// manifestJSON.
func NewServer(t transport.PipelineTransport, logger logging.Logger, manifestJSON []byte) *Server {
	return &Server{transport: t, logger: logger, manifestJSON: manifestJSON, sessions: make(map[string]transport.StreamSession)}
}

// TwilioStatusCallback handles Twilio's form-encoded call-status webhook.
func (s *Server) TwilioStatusCallback(w http.ResponseWriter, r *http.Request) {
	event, err := parseTwilioForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.handleEvent(w, r.Context(), event)
}

// VonageStatusCallback handles Vonage's JSON call-status webhook.
func (s *Server) VonageStatusCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	event, err := parseVonageJSON(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.handleEvent(w, r.Context(), event)
}

func (s *Server) handleEvent(w http.ResponseWriter, ctx context.Context, event CallEvent) {
	stream, err := s.sessionFor(ctx, event)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	payload, err := json.Marshal(event.Raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := stream.SendInput(ctx, event.Provider, runtimedata.NewText(string(payload), "utf-8", "")); err != nil {
		s.logger.Warnw("telephonyapi: send input failed", "error", err, "call_sid", event.CallSID)
	}

	if event.IsTerminal() {
		stream.SendInput(ctx, event.Provider, runtimedata.NewControl(runtimedata.ControlEndOfStream, event.CallSID))
		stream.Close(ctx)
		s.mu.Lock()
		delete(s.sessions, event.CallSID)
		s.mu.Unlock()
	}

	w.WriteHeader(http.StatusOK)
}

// sessionFor returns the existing session for event.CallSID, admitting a
// new one on the call's first callback.
func (s *Server) sessionFor(ctx context.Context, event CallEvent) (transport.StreamSession, error) {
	s.mu.Lock()
	stream, ok := s.sessions[event.CallSID]
	s.mu.Unlock()
	if ok {
		return stream, nil
	}

	stream, err := s.transport.CreateStreamSession(ctx, s.manifestJSON)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.sessions[event.CallSID] = stream
	s.mu.Unlock()
	return stream, nil
}
