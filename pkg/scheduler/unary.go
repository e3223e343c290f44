// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package scheduler

import (
	"context"
	"fmt"

	"github.com/rapidaai/streamrt/pkg/manifest"
	"github.com/rapidaai/streamrt/pkg/node"
	"github.com/rapidaai/streamrt/pkg/runtimedata"
)

// ExecuteUnary runs manifestJSON once, synchronously, in the graph's
// deterministic topological order: one input in, one Process call per
// pending item per node, no background tasks. inputs seeds each
// named source node's incoming data; the return value collects every sink
// node's single output.
func (r *PipelineRunner) ExecuteUnary(ctx context.Context, manifestJSON []byte, inputs map[string]runtimedata.RuntimeData) (map[string]runtimedata.RuntimeData, error) {
	m, err := manifest.Parse(manifestJSON)
	if err != nil {
		return nil, err
	}
	g, err := manifest.BuildGraph(m)
	if err != nil {
		return nil, err
	}
	placements, err := r.resolvePlacements(g)
	if err != nil {
		return nil, fmt.Errorf("placement: %w", err)
	}

	callID := r.newSessionID()
	nodes := make(map[string]node.Executor, len(g.Nodes))
	for id, n := range g.Nodes {
		ex, err := r.registry.Build(n.NodeType, n.Params)
		if err != nil {
			return nil, fmt.Errorf("building node %q: %w", id, err)
		}
		ex, err = r.placeExecutor(callID, id, ex, placements[id])
		if err != nil {
			return nil, fmt.Errorf("placing node %q: %w", id, err)
		}
		nodes[id] = ex
	}
	defer func() {
		for id, ex := range nodes {
			if err := ex.Cleanup(ctx); err != nil {
				r.logger.Warnw("unary cleanup error", "node_id", id, "error", err)
			}
		}
	}()

	for id, ex := range nodes {
		if err := ex.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("initialize node %q: %w", id, err)
		}
	}

	pending := make(map[string][]runtimedata.RuntimeData, len(g.Nodes))
	for id, data := range inputs {
		if _, ok := g.Nodes[id]; !ok {
			return nil, fmt.Errorf("input references unknown node %q", id)
		}
		pending[id] = append(pending[id], data)
	}

	results := make(map[string]runtimedata.RuntimeData, len(g.Sinks))

	for _, id := range g.Order {
		items := pending[id]
		if len(items) == 0 {
			continue
		}
		ex := nodes[id]
		children := g.Children[id]

		for _, in := range items {
			outputs, err := ex.Process(ctx, in)
			if err != nil {
				return nil, fmt.Errorf("node %q process: %w", id, err)
			}
			if ex.IsStreaming() {
				flushed, err := ex.FinishStreaming(ctx)
				if err != nil {
					return nil, fmt.Errorf("node %q finish_streaming: %w", id, err)
				}
				outputs = append(outputs, flushed...)
			}

			for _, out := range outputs {
				if len(children) == 0 {
					results[id] = out
					continue
				}
				for _, childID := range children {
					pending[childID] = append(pending[childID], out.Clone())
				}
			}
		}
	}

	return results, nil
}
