// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package grpcapi implements a gRPC transport.PipelineTransport front-end
// multiplexed with HTTP/gRPC-Web on one listener via soheilhy/cmux,
// manually registering a service (no .proto sources exist for this
// repo's own RPCs to generate stubs from) over
// google.golang.org/protobuf's wrapperspb.BytesValue, letting every
// manifest/input/output payload travel as the same opaque JSON-encoded
// bytes pkg/transport already uses internally.
package grpcapi

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/rapidaai/streamrt/pkg/runtimedata"
	"github.com/rapidaai/streamrt/pkg/transport"
	"github.com/rapidaai/streamrt/pkg/utils"
)

// executeUnaryRequest/executeUnaryResponse are the JSON payloads carried
// inside a wrapperspb.BytesValue for the unary RPC.
type executeUnaryRequest struct {
	ManifestJSON json.RawMessage         `json:"manifest_json"`
	Inputs       map[string]textDataWire `json:"inputs"`
}

type executeUnaryResponse struct {
	Outputs map[string]textDataWire `json:"outputs"`
}

// textDataWire is the wire shape for one RuntimeData value crossing the
// gRPC boundary. Mirrors the Text/Binary variants since those are what a
// manifest-level unary call realistically exchanges (audio/video/numpy
// payloads stream through pkg/ipc, not this request/response RPC).
type textDataWire struct {
	Encoding string `json:"encoding"`
	Language string `json:"language,omitempty"`
	Bytes    []byte `json:"bytes"`
}

func (t textDataWire) toRuntimeData() runtimedata.RuntimeData {
	return runtimedata.NewText(string(t.Bytes), t.Encoding, t.Language)
}

func fromRuntimeData(d runtimedata.RuntimeData) textDataWire {
	return textDataWire{Encoding: d.Encoding, Language: d.Language, Bytes: d.Bytes()}
}

// pipelineTransportServer adapts transport.PipelineTransport to the
// hand-registered gRPC service below.
type pipelineTransportServer struct {
	transport transport.PipelineTransport
}

// requestHeaders is the subset of the caller's x-rapida-* headers this
// service inspects, read from the incoming gRPC metadata under the shared
// header names every streamrt transport (gRPC, HTTP, WebSocket) uses.
type requestHeaders struct {
	apiKey      string
	source      string
	environment string
}

func readRequestHeaders(ctx context.Context) requestHeaders {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return requestHeaders{}
	}
	first := func(key string) string {
		if v := md.Get(key); len(v) > 0 {
			return v[0]
		}
		return ""
	}
	return requestHeaders{
		apiKey:      first(utils.HEADER_API_KEY),
		source:      first(utils.HEADER_SOURCE_KEY),
		environment: first(utils.HEADER_ENVIRONMENT_KEY),
	}
}

func (s *pipelineTransportServer) executeUnary(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	headers := readRequestHeaders(ctx)
	if utils.IsEmpty(headers.apiKey) {
		return nil, status.Errorf(codes.Unauthenticated, "missing %s", utils.HEADER_API_KEY)
	}

	var in executeUnaryRequest
	if err := json.Unmarshal(req.GetValue(), &in); err != nil {
		return nil, err
	}
	inputs := make(map[string]runtimedata.RuntimeData, len(in.Inputs))
	for nodeID, wire := range in.Inputs {
		inputs[nodeID] = wire.toRuntimeData()
	}

	results, err := s.transport.ExecuteUnary(ctx, in.ManifestJSON, inputs)
	if err != nil {
		return nil, err
	}
	out := executeUnaryResponse{Outputs: make(map[string]textDataWire, len(results))}
	for nodeID, data := range results {
		out.Outputs[nodeID] = fromRuntimeData(data)
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(payload), nil
}

// serviceDesc hand-registers the ExecuteUnary RPC without a generated
// .pb.go client/server pair. CreateStreamSession's bidirectional
// traffic is intentionally left off this RPC surface: streaming sessions
// are driven by transports/webrtcapi/sipapi instead, keeping unary RPCs
// and long-lived media sessions on separate transports rather than
// forcing both through one gRPC method.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: "streamrt.PipelineTransport",
	HandlerType: (*pipelineTransportServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ExecuteUnary",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				req := new(wrapperspb.BytesValue)
				if err := dec(req); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(*pipelineTransportServer).executeUnary(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/streamrt.PipelineTransport/ExecuteUnary"}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(*pipelineTransportServer).executeUnary(ctx, req.(*wrapperspb.BytesValue))
				}
				return interceptor(ctx, req, info, handler)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "streamrt/transport.proto",
}
