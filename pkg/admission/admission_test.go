// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package admission_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/streamrt/pkg/admission"
)

func TestController_TryAdmit_Succeeds(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := admission.NewController(rdb, "instance-1", 10, time.Minute)

	mock.Regexp().ExpectEval(`.*`, []string{"streamrt:admission:\\{sessions\\}:", "streamrt:admission:\\{sessions\\}:lease:sess-1"}, []interface{}{10, 60}).SetVal(int64(1))

	err := c.TryAdmit(context.Background(), "sess-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestController_TryAdmit_AtCapacity(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := admission.NewController(rdb, "instance-1", 1, time.Minute)

	mock.Regexp().ExpectEval(`.*`, []string{"streamrt:admission:\\{sessions\\}:", "streamrt:admission:\\{sessions\\}:lease:sess-1"}, []interface{}{1, 60}).SetVal(int64(0))

	err := c.TryAdmit(context.Background(), "sess-1")
	require.ErrorIs(t, err, admission.ErrAtCapacity)
}

func TestController_Release(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := admission.NewController(rdb, "instance-1", 10, time.Minute)

	mock.ExpectDel("streamrt:admission:{sessions}:lease:sess-1").SetVal(1)

	require.NoError(t, c.Release(context.Background(), "sess-1"))
}

func TestController_Renew_NoActiveLease(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := admission.NewController(rdb, "instance-1", 10, time.Minute)

	mock.ExpectExpire("streamrt:admission:{sessions}:lease:sess-1", time.Minute).SetVal(false)

	err := c.Renew(context.Background(), "sess-1")
	require.Error(t, err)
}

func TestCheckSatisfiable_GPURequired(t *testing.T) {
	err := admission.CheckSatisfiable(
		admission.HostCapabilities{HasGPU: false},
		admission.RequiredCapabilities{NeedsGPU: true},
	)
	require.Error(t, err)
	var ce *admission.CapabilityError
	assert.ErrorAs(t, err, &ce)
}

func TestCheckSatisfiable_OK(t *testing.T) {
	err := admission.CheckSatisfiable(
		admission.HostCapabilities{HasGPU: true, GPUMemoryGB: 16, MemoryGB: 32, HasDocker: true},
		admission.RequiredCapabilities{NeedsGPU: true, GPUMemoryGB: 8, MemoryGB: 4, NeedsDocker: true},
	)
	require.NoError(t, err)
}

func TestCheckSatisfiable_InsufficientMemory(t *testing.T) {
	err := admission.CheckSatisfiable(
		admission.HostCapabilities{MemoryGB: 2},
		admission.RequiredCapabilities{MemoryGB: 4},
	)
	require.Error(t, err)
}
