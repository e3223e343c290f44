// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package webrtcapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pion/webrtc/v4"

	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/transport"
)

// OfferRequest is the signaling payload a client POSTs to negotiate one
// WebRTC session: the manifest to admit plus its SDP offer.
type OfferRequest struct {
	ManifestJSON json.RawMessage `json:"manifest_json"`
	SDP          string          `json:"sdp"`
}

// AnswerResponse carries the SDP answer and the admitted session id back
// to the client.
type AnswerResponse struct {
	SessionID string `json:"session_id"`
	SDP       string `json:"sdp"`
}

// Server runs the offer/answer handshake as a single HTTP POST — each
// transport front-end is independent rather than sharing one signaling
// channel — and then hands the negotiated peer connection to a Session
// for the lifetime of the call.
type Server struct {
	transport  transport.PipelineTransport
	logger     logging.Logger
	iceServers []webrtc.ICEServer
}

// NewServer constructs a webrtcapi.Server over t, using the given ICE
// servers for every negotiated peer connection (pass nil for host-only
// candidates in tests).
func NewServer(t transport.PipelineTransport, logger logging.Logger, iceServers []webrtc.ICEServer) *Server {
	return &Server{transport: t, logger: logger, iceServers: iceServers}
}

// ServeHTTP accepts one offer, admits the manifest as a stream session,
// negotiates the answer, and runs the session's output pump in the
// background for the lifetime of the peer connection.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req OfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	stream, err := s.transport.CreateStreamSession(ctx, req.ManifestJSON)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := NewSession(stream, s.logger, s.iceServers)
	if err != nil {
		stream.Close(ctx)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	answer, err := negotiate(sess.PeerConnection(), req.SDP)
	if err != nil {
		sess.Close()
		stream.Close(ctx)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	runCtx := context.Background()
	sess.PeerConnection().OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		if state == webrtc.PeerConnectionStateFailed || state == webrtc.PeerConnectionStateClosed || state == webrtc.PeerConnectionStateDisconnected {
			sess.Close()
			stream.Close(context.Background())
		}
	})
	go func() {
		if err := sess.Run(runCtx); err != nil {
			s.logger.Debugw("webrtcapi: session output loop ended", "error", err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AnswerResponse{SessionID: stream.SessionID(), SDP: answer.SDP})
}

// negotiate sets offerSDP as the remote description, creates and sets a
// local answer, and waits for ICE gathering to complete before returning
// the answer (non-trickle ICE, matching a single request/response
// signaling exchange).
func negotiate(pc *webrtc.PeerConnection, offerSDP string) (*webrtc.SessionDescription, error) {
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offerSDP}
	if err := pc.SetRemoteDescription(offer); err != nil {
		return nil, fmt.Errorf("webrtcapi: set remote description: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("webrtcapi: create answer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("webrtcapi: set local description: %w", err)
	}
	<-gatherComplete

	return pc.LocalDescription(), nil
}
