// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package websocketapi implements a JSON-envelope transport.PipelineTransport
// front-end over gorilla/websocket: one request/response envelope with
// typed Data payloads per message Type, accepting a
// browser/SDK client's connection and driving a pipeline session from its
// messages, reusing the same envelope and message-type vocabulary.
package websocketapi

import "encoding/json"

// MessageType is a tag naming which payload shape Data carries.
type MessageType string

const (
	// Client -> server
	TypeCreateSession MessageType = "create_session"
	TypeInput         MessageType = "input"
	TypeClose         MessageType = "close"

	// Server -> client
	TypeSessionCreated MessageType = "session_created"
	TypeOutput         MessageType = "output"
	TypeError          MessageType = "error"

	// Bidirectional keepalive.
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"
)

// Envelope is one wire struct for
// both directions, Data left as a raw JSON blob so the concrete payload
// type decodes only once the Type tag is known.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// CreateSessionData is Data's shape for TypeCreateSession.
type CreateSessionData struct {
	Manifest json.RawMessage `json:"manifest"`
}

// SessionCreatedData is Data's shape for TypeSessionCreated.
type SessionCreatedData struct {
	SessionID string `json:"session_id"`
}

// InputData is Data's shape for TypeInput: raw bytes for one RuntimeData
// frame, addressed to a source node by id.
type InputData struct {
	SourceNodeID string `json:"source_node_id"`
	Encoding     string `json:"encoding"`
	Language     string `json:"language,omitempty"`
	Bytes        []byte `json:"bytes"`
}

// OutputData is Data's shape for TypeOutput.
type OutputData struct {
	Encoding string `json:"encoding"`
	Language string `json:"language,omitempty"`
	Bytes    []byte `json:"bytes"`
}

// ErrorData is the payload of a TypeError envelope.
type ErrorData struct {
	Message string `json:"message"`
}
