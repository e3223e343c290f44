// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package pybridge

import "context"

// FakeInterpreter is an in-memory Interpreter used by tests and by nodes
// exercised without a real Python runtime available. Funcs maps a callable
// name to a Go closure standing in for the Python-side function.
type FakeInterpreter struct {
	Funcs       map[string]func(args ...Value) (Value, error)
	initialized bool
	closed      bool
}

// NewFakeInterpreter returns a FakeInterpreter with an empty Funcs table;
// populate it before use.
func NewFakeInterpreter() *FakeInterpreter {
	return &FakeInterpreter{Funcs: make(map[string]func(args ...Value) (Value, error))}
}

func (f *FakeInterpreter) Initialize(ctx context.Context) error {
	f.initialized = true
	return nil
}

func (f *FakeInterpreter) Call(ctx context.Context, fn string, args ...Value) (Value, error) {
	call, ok := f.Funcs[fn]
	if !ok {
		return nil, &CallError{Fn: fn, Reason: "no such function registered"}
	}
	return call(args...)
}

func (f *FakeInterpreter) Close(ctx context.Context) error {
	f.closed = true
	return nil
}
