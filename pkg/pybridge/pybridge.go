// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package pybridge implements the Python embedding bridge:
// a process-wide lock serializing every call into the embedded
// interpreter, so no goroutine straddles a Python call across an await
// boundary the way CPython's GIL already forbids two OS threads from
// running Python bytecode concurrently. There is no Go-native CPython
// embedding library (only cgo-based bindings exist), so this package
// defines Interpreter as a driver interface rather than a concrete
// embedding — the boundary a cgo implementation would sit behind — and
// ships an in-memory FakeInterpreter for tests; see DESIGN.md for the
// interface-only decision.
package pybridge

import (
	"context"
	"fmt"
	"sync"
)

// Value is whatever an Interpreter call exchanges across the Go/Python
// boundary: Go-native types (string, float64, []byte, map[string]any,
// []any) that a concrete driver marshals to/from Python objects.
type Value = interface{}

// Interpreter is the driver contract a concrete embedding implements. Every
// method may be called from any goroutine; Bridge is what actually
// enforces the single-interpreter-call-at-a-time rule, not implementations
// of this interface.
type Interpreter interface {
	// Initialize prepares the interpreter (e.g. Py_Initialize, importing a
	// node's python_packages). Called once before the first Call.
	Initialize(ctx context.Context) error
	// Call invokes a Python-side callable named fn with args, returning its
	// result marshaled back to Go.
	Call(ctx context.Context, fn string, args ...Value) (Value, error)
	// Close tears the interpreter down (e.g. Py_Finalize). Called once.
	Close(ctx context.Context) error
}

// Bridge wraps an Interpreter with the GIL-style serialization discipline:
// exactly one Call (or Initialize/Close) executes at a time, so no
// suspension point ever straddles a Python call.
// The mutex is held for the full duration of the call, so
// a blocked goroutine waiting on it never itself blocks holding the lock
// across a suspension point.
type Bridge struct {
	mu   sync.Mutex
	impl Interpreter
}

// New wraps impl in a Bridge.
func New(impl Interpreter) *Bridge {
	return &Bridge{impl: impl}
}

// Initialize serializes through to the underlying Interpreter.
func (b *Bridge) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.impl.Initialize(ctx)
}

// Call serializes through to the underlying Interpreter, holding the
// process-wide lock for the full call.
func (b *Bridge) Call(ctx context.Context, fn string, args ...Value) (Value, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.impl.Call(ctx, fn, args...)
}

// Close serializes through to the underlying Interpreter.
func (b *Bridge) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.impl.Close(ctx)
}

// CallError wraps a Python-side exception surfaced through Call, carrying
// the callable name for diagnostics.
type CallError struct {
	Fn     string
	Reason string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("pybridge: call to %q failed: %s", e.Fn, e.Reason)
}
