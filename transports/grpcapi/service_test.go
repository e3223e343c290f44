// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package grpcapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/rapidaai/streamrt/pkg/runtimedata"
	"github.com/rapidaai/streamrt/pkg/transport"
	"github.com/rapidaai/streamrt/pkg/utils"
)

func TestReadRequestHeaders_ExtractsKnownKeys(t *testing.T) {
	md := metadata.Pairs(
		utils.HEADER_API_KEY, "key-123",
		utils.HEADER_SOURCE_KEY, "webrtc",
		utils.HEADER_ENVIRONMENT_KEY, "production",
	)
	ctx := metadata.NewIncomingContext(context.Background(), md)

	got := readRequestHeaders(ctx)
	assert.Equal(t, "key-123", got.apiKey)
	assert.Equal(t, "webrtc", got.source)
	assert.Equal(t, "production", got.environment)
}

func TestReadRequestHeaders_NoIncomingMetadataReturnsZeroValue(t *testing.T) {
	got := readRequestHeaders(context.Background())
	assert.Equal(t, requestHeaders{}, got)
}

func TestExecuteUnary_RejectsMissingAPIKey(t *testing.T) {
	s := &pipelineTransportServer{transport: &fakeTransport{}}
	req := wrapperspb.Bytes([]byte(`{"manifest_json":{},"inputs":{}}`))

	_, err := s.executeUnary(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestExecuteUnary_SucceedsWithAPIKey(t *testing.T) {
	s := &pipelineTransportServer{transport: &fakeTransport{}}
	md := metadata.Pairs(utils.HEADER_API_KEY, "key-123")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	req := wrapperspb.Bytes([]byte(`{"manifest_json":{},"inputs":{}}`))

	_, err := s.executeUnary(ctx, req)
	require.NoError(t, err)
}

type fakeTransport struct{}

func (f *fakeTransport) ExecuteUnary(ctx context.Context, manifestJSON []byte, inputs map[string]runtimedata.RuntimeData) (map[string]runtimedata.RuntimeData, error) {
	return map[string]runtimedata.RuntimeData{"sink": runtimedata.NewText("ok", "utf-8", "en")}, nil
}

func (f *fakeTransport) CreateStreamSession(ctx context.Context, manifestJSON []byte) (transport.StreamSession, error) {
	return nil, nil
}

func (f *fakeTransport) Shutdown(ctx context.Context) error { return nil }
