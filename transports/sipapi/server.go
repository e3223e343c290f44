// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package sipapi

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"sync"

	"github.com/emiago/sipgo"
	"github.com/emiago/sipgo/sip"

	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/transport"
)

// Server is a SIP UAS accepting inbound INVITEs, admitting each as a
// transport.StreamSession, and bridging its RTP media via mediaSession.
// One Server owns one sipgo UA/listener shared by every inbound call.
type Server struct {
	logger     logging.Logger
	transport  transport.PipelineTransport
	localIP    string
	rtpPortLow int
	rtpPortHi  int

	ua  *sipgo.UserAgent
	srv *sipgo.Server

	mu           sync.Mutex
	sessions     map[string]*callState
	manifestJSON []byte
}

type callState struct {
	stream transport.StreamSession
	media  *mediaSession
}

// NewServer constructs a sipapi.Server bound to localIP, allocating RTP
// ports from [rtpPortLow, rtpPortHi] for each accepted call.
func NewServer(t transport.PipelineTransport, logger logging.Logger, localIP string, rtpPortLow, rtpPortHi int) (*Server, error) {
	ua, err := sipgo.NewUA(sipgo.WithUserAgent("streamrt/1.0"))
	if err != nil {
		return nil, fmt.Errorf("sipapi: create user agent: %w", err)
	}
	srv, err := sipgo.NewServer(ua)
	if err != nil {
		return nil, fmt.Errorf("sipapi: create server: %w", err)
	}

	s := &Server{
		logger:     logger,
		transport:  t,
		localIP:    localIP,
		rtpPortLow: rtpPortLow,
		rtpPortHi:  rtpPortHi,
		ua:         ua,
		srv:        srv,
		sessions:   make(map[string]*callState),
	}

	srv.OnInvite(s.handleInvite)
	srv.OnAck(s.handleAck)
	srv.OnBye(s.handleBye)

	return s, nil
}

// ListenAndServe runs the SIP UAS over transportName ("udp"/"tcp") on
// addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, transportName, addr string) error {
	return s.srv.ListenAndServe(ctx, transportName, addr)
}

// handleInvite admits manifestJSON carried in the INVITE's SDP-adjacent
// call setup (in practice: a fixed manifest bound to the DID/trunk, kept
// out of this minimal UAS) as a stream session, opens an RTP socket, and
// answers 200 OK with the negotiated SDP.
func (s *Server) handleInvite(req *sip.Request, tx sip.ServerTransaction) {
	ctx := context.Background()
	offer, err := parseOffer(req.Body())
	if err != nil {
		s.respond(req, tx, 488, "Not Acceptable Here")
		return
	}

	stream, err := s.transport.CreateStreamSession(ctx, s.manifestForCall(req))
	if err != nil {
		s.logger.Errorw("sipapi: admit call failed", "error", err)
		s.respond(req, tx, 503, "Service Unavailable")
		return
	}

	media, err := newMediaSession(fmt.Sprintf(":%d", s.allocatePort()), rand.Uint32(), stream, s.logger)
	if err != nil {
		stream.Close(ctx)
		s.respond(req, tx, 500, "Internal Server Error")
		return
	}

	remoteAddr := &net.UDPAddr{IP: net.ParseIP(offer.ip), Port: offer.port}
	media.Start(ctx, remoteAddr)

	callID := req.CallID().Value()
	s.mu.Lock()
	s.sessions[callID] = &callState{stream: stream, media: media}
	s.mu.Unlock()

	answerSDP := generateAnswer(s.localIP, media.LocalPort())
	resp := sip.NewResponseFromRequest(req, 200, "OK", []byte(answerSDP))
	resp.AppendHeader(sip.NewHeader("Content-Type", "application/sdp"))
	if err := tx.Respond(resp); err != nil {
		s.logger.Errorw("sipapi: respond 200 OK failed", "error", err)
	}
}

func (s *Server) handleAck(req *sip.Request, tx sip.ServerTransaction) {
	// Media already started on the 200 OK; ACK just confirms the dialog.
}

func (s *Server) handleBye(req *sip.Request, tx sip.ServerTransaction) {
	callID := req.CallID().Value()
	s.mu.Lock()
	cs, ok := s.sessions[callID]
	delete(s.sessions, callID)
	s.mu.Unlock()

	if ok {
		cs.media.Close()
		cs.stream.Close(context.Background())
	}
	s.respond(req, tx, 200, "OK")
}

func (s *Server) respond(req *sip.Request, tx sip.ServerTransaction, code sip.StatusCode, reason string) {
	resp := sip.NewResponseFromRequest(req, code, reason, nil)
	if err := tx.Respond(resp); err != nil {
		s.logger.Debugw("sipapi: respond failed", "code", code, "error", err)
	}
}

// manifestForCall resolves the pipeline manifest for an inbound call.
// A production deployment would look this up by the dialed DID/trunk;
// this UAS is scoped to a single statically-configured manifest per
// Server instance instead, set via SetManifest before ListenAndServe.
func (s *Server) manifestForCall(req *sip.Request) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manifestJSON
}

// SetManifest configures the manifest every inbound call is admitted
// with.
func (s *Server) SetManifest(manifestJSON []byte) {
	s.mu.Lock()
	s.manifestJSON = manifestJSON
	s.mu.Unlock()
}

func (s *Server) allocatePort() int {
	if s.rtpPortHi <= s.rtpPortLow {
		return s.rtpPortLow
	}
	return s.rtpPortLow + rand.Intn(s.rtpPortHi-s.rtpPortLow)
}
