// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package arithmetic

import "github.com/rapidaai/streamrt/pkg/node"

// Register adds every node type this package provides to reg: one
// call site that wires every built-in implementation into the registry a
// scheduler was constructed with.
func Register(reg *node.Registry) {
	reg.Register("multiply", NewMultiply)
	reg.Register("add", NewAdd)
	reg.Register("pass_through", NewPassThrough)
	reg.Register("sink", NewSink)
}
