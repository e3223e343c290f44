// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"github.com/rapidaai/streamrt/nodes/arithmetic"
	"github.com/rapidaai/streamrt/nodes/formatconvert"
	"github.com/rapidaai/streamrt/nodes/inference"
	"github.com/rapidaai/streamrt/nodes/llm"
	"github.com/rapidaai/streamrt/nodes/stt"
	"github.com/rapidaai/streamrt/nodes/tool"
	"github.com/rapidaai/streamrt/nodes/tts"
	"github.com/rapidaai/streamrt/pkg/node"
)

// buildRegistry constructs a node.Registry with every built-in node type
// this process ships registered against it. Each nodes/* package owns its
// own Register function (its own constructor/param-decoding concerns);
// main only needs to know the set exists.
func buildRegistry() *node.Registry {
	reg := node.NewRegistry()
	arithmetic.Register(reg)
	formatconvert.Register(reg)
	inference.Register(reg)
	llm.Register(reg)
	stt.Register(reg)
	tool.Register(reg)
	tts.Register(reg)
	return reg
}
