// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package grpcapi

import (
	"net"
	"net/http"
	"time"

	grpcrecovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/improbable-eng/grpc-web/go/grpcweb"
	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"

	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/transport"
)

// Server multiplexes a gRPC PipelineTransport service and its gRPC-Web
// wrapper onto a single listener via cmux, so browser and native clients
// share one port.
type Server struct {
	logger     logging.Logger
	grpcServer *grpc.Server
	webServer  *grpcweb.WrappedGrpcServer
}

// NewServer constructs the multiplexed server over t.
func NewServer(t transport.PipelineTransport, logger logging.Logger) *Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcrecovery.UnaryServerInterceptor()),
	)
	grpcServer.RegisterService(&serviceDesc, &pipelineTransportServer{transport: t})

	return &Server{
		logger:     logger,
		grpcServer: grpcServer,
		webServer:  grpcweb.WrapServer(grpcServer),
	}
}

// ListenAndServe accepts connections on addr, routing native gRPC traffic
// to grpcServer and everything else (including gRPC-Web requests) to the
// grpc-web-wrapped HTTP handler, until the listener is closed.
func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Serve is ListenAndServe's testable half, taking an already-bound
// listener (e.g. net.Listen("tcp", "127.0.0.1:0") in tests).
func (s *Server) Serve(lis net.Listener) error {
	m := cmux.New(lis)
	grpcL := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := m.Match(cmux.HTTP1Fast())

	httpServer := &http.Server{
		Handler:           http.HandlerFunc(s.serveHTTP),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 3)
	go func() { errCh <- s.grpcServer.Serve(grpcL) }()
	go func() { errCh <- httpServer.Serve(httpL) }()
	go func() { errCh <- m.Serve() }()

	return <-errCh
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if s.webServer.IsGrpcWebRequest(r) || s.webServer.IsAcceptableGrpcCorsRequest(r) {
		s.webServer.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}

// Shutdown stops the gRPC server gracefully.
func (s *Server) Shutdown() {
	s.grpcServer.GracefulStop()
}
