// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package node defines the NodeExecutor contract every pipeline node
// implements and the process-wide registry that maps a manifest's
// node_type strings to constructors.
package node

import (
	"context"

	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

// Mode distinguishes the two execution modes a node can run in:
// Unary nodes consume one input and produce one output per call;
// Streaming nodes may emit zero or more outputs per Process call, and are
// additionally driven by FinishStreaming at end-of-stream.
type Mode uint8

const (
	ModeUnary Mode = iota
	ModeStreaming
)

// Info describes a node's static contract: the input/output RuntimeData
// kinds it accepts/produces and its execution mode. The scheduler uses
// this both for manifest-time schema checking between connected nodes and
// for admission/placement decisions.
type Info struct {
	NodeType    string
	Mode        Mode
	InputKinds  []runtimedata.Kind
	OutputKinds []runtimedata.Kind
	IsStreaming bool
}

// Executor is the contract every node implements:
//
//	Initialize(ctx) error              -- called once before first Process
//	Process(ctx, input) ([]RuntimeData, error) -- may return 0..N outputs
//	IsStreaming() bool
//	FinishStreaming(ctx) ([]RuntimeData, error) -- flush on end-of-stream
//	Cleanup(ctx) error                 -- called once, always, on teardown
//	Info() Info
type Executor interface {
	Initialize(ctx context.Context) error
	Process(ctx context.Context, input runtimedata.RuntimeData) ([]runtimedata.RuntimeData, error)
	IsStreaming() bool
	FinishStreaming(ctx context.Context) ([]runtimedata.RuntimeData, error)
	Cleanup(ctx context.Context) error
	Info() Info
}

// UnimplementedStreaming embeds into unary NodeExecutors so they don't have
// to stub out FinishStreaming/IsStreaming themselves.
type UnimplementedStreaming struct{}

func (UnimplementedStreaming) IsStreaming() bool { return false }

func (UnimplementedStreaming) FinishStreaming(ctx context.Context) ([]runtimedata.RuntimeData, error) {
	return nil, nil
}
