// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package websocketapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
	"github.com/rapidaai/streamrt/pkg/transport"
)

// upgrader sets a HandshakeTimeout on the accept side. It sets no read
// limit and accepts every Origin.
var upgrader = websocket.Upgrader{
	HandshakeTimeout: 30 * time.Second,
	CheckOrigin:      func(r *http.Request) bool { return true },
}

// Server accepts WebSocket connections and drives one streaming pipeline
// session per connection through a transport.PipelineTransport.
type Server struct {
	transport transport.PipelineTransport
	logger    logging.Logger
}

// NewServer constructs a websocketapi.Server over t.
func NewServer(t transport.PipelineTransport, logger logging.Logger) *Server {
	return &Server{transport: t, logger: logger}
}

// ServeHTTP upgrades the request to a WebSocket connection and runs
// connectionLoop until the client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorf("websocketapi: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	if err := s.connectionLoop(r.Context(), conn); err != nil {
		s.logger.Errorf("websocketapi: connection closed with error: %v", err)
	}
}

// connection wraps one accepted conn; gorilla connections allow only one
// concurrent writer, so every send goes through writeMu.
type connection struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *connection) send(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(env)
}

// connectionLoop reads envelopes until TypeCreateSession arrives, then
// fans out a send goroutine (draining session output) and a receive loop
// (forwarding client input) via errgroup.
func (s *Server) connectionLoop(ctx context.Context, wsConn *websocket.Conn) error {
	c := &connection{conn: wsConn}

	var env Envelope
	if err := wsConn.ReadJSON(&env); err != nil {
		return err
	}
	if env.Type != TypeCreateSession {
		return c.send(Envelope{Type: TypeError, Data: mustMarshal(ErrorData{Message: "first message must be create_session"})})
	}
	var created CreateSessionData
	if err := json.Unmarshal(env.Data, &created); err != nil {
		return c.send(Envelope{Type: TypeError, Data: mustMarshal(ErrorData{Message: err.Error()})})
	}

	sess, err := s.transport.CreateStreamSession(ctx, created.Manifest)
	if err != nil {
		return c.send(Envelope{Type: TypeError, Data: mustMarshal(ErrorData{Message: err.Error()})})
	}
	defer sess.Close(ctx)

	if err := c.send(Envelope{
		Type:      TypeSessionCreated,
		Timestamp: time.Now().UnixMilli(),
		Data:      mustMarshal(SessionCreatedData{SessionID: sess.SessionID()}),
	}); err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.outputLoop(gCtx, sess, c) })
	g.Go(func() error { return s.inputLoop(gCtx, sess, wsConn) })
	return g.Wait()
}

// outputLoop forwards every RuntimeData the session produces to the
// client as a TypeOutput envelope until the session closes.
func (s *Server) outputLoop(ctx context.Context, sess transport.StreamSession, c *connection) error {
	for sess.IsActive() {
		data, err := sess.RecvOutput(ctx)
		if err != nil {
			return err
		}
		if err := c.send(Envelope{
			Type:      TypeOutput,
			Timestamp: time.Now().UnixMilli(),
			Data: mustMarshal(OutputData{
				Encoding: data.Encoding,
				Language: data.Language,
				Bytes:    data.Bytes(),
			}),
		}); err != nil {
			return err
		}
	}
	return nil
}

// inputLoop reads client envelopes and feeds TypeInput messages into the
// session as Text RuntimeData until TypeClose or the connection drops.
func (s *Server) inputLoop(ctx context.Context, sess transport.StreamSession, wsConn *websocket.Conn) error {
	for {
		var env Envelope
		if err := wsConn.ReadJSON(&env); err != nil {
			return err
		}
		switch env.Type {
		case TypeClose:
			return sess.Close(ctx)
		case TypeInput:
			var in InputData
			if err := json.Unmarshal(env.Data, &in); err != nil {
				return err
			}
			data := runtimedata.NewText(string(in.Bytes), in.Encoding, in.Language)
			if err := sess.SendInput(ctx, in.SourceNodeID, data); err != nil {
				return err
			}
		case TypePing:
			// Ping is read and ignored; no TypePong envelope is sent in
			// reply.
		}
	}
}

func mustMarshal(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}
