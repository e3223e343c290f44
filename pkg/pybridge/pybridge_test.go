// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package pybridge_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/streamrt/pkg/pybridge"
)

func TestBridge_CallRoundTrip(t *testing.T) {
	fake := pybridge.NewFakeInterpreter()
	fake.Funcs["double"] = func(args ...pybridge.Value) (pybridge.Value, error) {
		return args[0].(int) * 2, nil
	}
	b := pybridge.New(fake)
	require.NoError(t, b.Initialize(context.Background()))

	out, err := b.Call(context.Background(), "double", 21)
	require.NoError(t, err)
	assert.Equal(t, 42, out)
}

func TestBridge_UnknownFunction(t *testing.T) {
	fake := pybridge.NewFakeInterpreter()
	b := pybridge.New(fake)
	_, err := b.Call(context.Background(), "missing")
	require.Error(t, err)
}

func TestBridge_SerializesConcurrentCalls(t *testing.T) {
	var inFlight int32
	var maxObserved int32
	fake := pybridge.NewFakeInterpreter()
	var mu sync.Mutex
	fake.Funcs["slow"] = func(args ...pybridge.Value) (pybridge.Value, error) {
		mu.Lock()
		inFlight++
		if inFlight > maxObserved {
			maxObserved = inFlight
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil, nil
	}
	b := pybridge.New(fake)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = b.Call(context.Background(), "slow")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxObserved, "no two Call invocations should have overlapped")
}
