// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package tool implements an MCP tool-caller NodeExecutor: a node that
// dials a single named tool on an MCP server over SSE and invokes it with a
// JSON-object argument payload carried in a Text RuntimeData.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rapidaai/streamrt/pkg/node"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

// toolParams names the MCP server endpoint and the single tool this node
// instance calls. One node instance binds to one tool.
type toolParams struct {
	ServerURL string `mapstructure:"server_url" validate:"required"`
	ToolName  string `mapstructure:"tool_name" validate:"required"`
}

type toolNode struct {
	node.UnimplementedStreaming
	serverURL string
	toolName  string
}

// NewTool constructs a tool-caller node bound to params.tool_name on the
// MCP server at params.server_url.
func NewTool(rawParams map[string]interface{}) (node.Executor, error) {
	var p toolParams
	if err := node.DecodeParams(rawParams, &p); err != nil {
		return nil, err
	}
	return &toolNode{serverURL: p.ServerURL, toolName: p.ToolName}, nil
}

func (n *toolNode) Initialize(ctx context.Context) error { return nil }

func (n *toolNode) Process(ctx context.Context, input runtimedata.RuntimeData) ([]runtimedata.RuntimeData, error) {
	if err := runtimedata.RequireKind(input, runtimedata.KindText); err != nil {
		return nil, err
	}

	var args map[string]interface{}
	if raw := input.Bytes(); len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("tool: decoding call arguments: %w", err)
		}
	}

	mcpClient, err := client.NewSSEMCPClient(n.serverURL)
	if err != nil {
		return nil, fmt.Errorf("tool: connecting to mcp server: %w", err)
	}
	defer mcpClient.Close()

	if err := mcpClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("tool: starting mcp client: %w", err)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = n.toolName
	req.Params.Arguments = args

	result, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("tool: calling %q: %w", n.toolName, err)
	}

	payload, err := json.Marshal(result.Content)
	if err != nil {
		return nil, fmt.Errorf("tool: encoding result: %w", err)
	}
	out := runtimedata.NewText(string(payload), "utf-8", input.Language)
	return []runtimedata.RuntimeData{out}, nil
}

func (n *toolNode) Cleanup(ctx context.Context) error { return nil }

func (n *toolNode) Info() node.Info {
	return node.Info{
		NodeType:    "mcp_tool",
		Mode:        node.ModeUnary,
		InputKinds:  []runtimedata.Kind{runtimedata.KindText},
		OutputKinds: []runtimedata.Kind{runtimedata.KindText},
	}
}

// Register adds the mcp_tool node type to reg.
func Register(reg *node.Registry) {
	reg.Register("mcp_tool", NewTool)
}
