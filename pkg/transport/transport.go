// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package transport defines the PipelineTransport facade: the narrow
// surface every protocol adapter (gRPC, WebSocket, WebRTC, SIP,
// telephony) drives a pipeline through, deliberately limited to
// ExecuteUnary/CreateStreamSession/Shutdown so adapters can't reach
// past the facade into scheduler internals.
package transport

import (
	"context"

	"github.com/rapidaai/streamrt/pkg/manifest"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

// PipelineTransport is the facade every transport adapter consumes.
type PipelineTransport interface {
	// ExecuteUnary runs manifestJSON once, synchronously, feeding inputs
	// (keyed by source node id) and returning every sink node's single
	// output (keyed by sink node id).
	ExecuteUnary(ctx context.Context, manifestJSON []byte, inputs map[string]runtimedata.RuntimeData) (map[string]runtimedata.RuntimeData, error)

	// CreateStreamSession parses and admits manifestJSON as a long-lived
	// streaming session, returning a handle to drive it.
	CreateStreamSession(ctx context.Context, manifestJSON []byte) (StreamSession, error)

	// Shutdown tears down every active session and releases admission
	// slots. Intended for process-wide graceful shutdown.
	Shutdown(ctx context.Context) error
}

// StreamSession is the capability set a transport adapter gets for one
// admitted streaming pipeline.
type StreamSession interface {
	SessionID() string
	SendInput(ctx context.Context, sourceNodeID string, data runtimedata.RuntimeData) error
	RecvOutput(ctx context.Context) (runtimedata.RuntimeData, error)
	Close(ctx context.Context) error
	IsActive() bool
}

// ParseManifest is a small convenience re-export so callers only need to
// import pkg/transport for the facade plus the wire type they hand it.
func ParseManifest(raw []byte) (manifest.Manifest, error) { return manifest.Parse(raw) }
