// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package placement resolves where a manifest node's Process call
// actually executes: explicit manifest placement first, then declared
// capabilities, then param heuristics.
package placement

import (
	"github.com/rapidaai/streamrt/pkg/admission"
	"github.com/rapidaai/streamrt/pkg/manifest"
)

// Resolution is the outcome of resolving one node's placement: which
// executor kind it runs under, plus the Docker config to use if Kind is
// ExecutorDocker.
type Resolution struct {
	Kind   manifest.ExecutorKind
	Docker *manifest.DockerConfig
}

// Resolve determines a node's placement using, in order: (1) an explicit
// `executor` field on the node, (2) metadata.execution.placement's
// WASI/Native/Remote hint, (3) metadata.use_docker / declared capability
// heuristics, (4) the default (inproc).
func Resolve(n manifest.Node, host admission.HostCapabilities) (Resolution, error) {
	if n.Executor != "" {
		if n.Executor == manifest.ExecutorDocker {
			return Resolution{Kind: manifest.ExecutorDocker, Docker: dockerConfigOf(n)}, nil
		}
		return Resolution{Kind: n.Executor}, nil
	}

	req := requiredCapabilitiesOf(n)
	if err := admission.CheckSatisfiable(host, req); err != nil {
		return Resolution{}, err
	}

	if n.Metadata != nil {
		if n.Metadata.Execution != nil {
			switch n.Metadata.Execution.Placement {
			case manifest.PlacementRemote:
				return Resolution{Kind: manifest.ExecutorMultiproc}, nil
			case manifest.PlacementNative, manifest.PlacementWASI, manifest.PlacementAnywhere:
				// Fall through to the use_docker / inproc default below —
				// these hints don't themselves force an out-of-process
				// executor.
			}
		}
		if n.Metadata.UseDocker {
			return Resolution{Kind: manifest.ExecutorDocker, Docker: dockerConfigOf(n)}, nil
		}
	}

	if req.NeedsGPU || req.NeedsDocker {
		return Resolution{Kind: manifest.ExecutorMultiproc}, nil
	}

	return Resolution{Kind: manifest.ExecutorInproc}, nil
}

func dockerConfigOf(n manifest.Node) *manifest.DockerConfig {
	if n.Metadata == nil {
		return &manifest.DockerConfig{}
	}
	if n.Metadata.DockerConfig == nil {
		return &manifest.DockerConfig{}
	}
	return n.Metadata.DockerConfig
}

func requiredCapabilitiesOf(n manifest.Node) admission.RequiredCapabilities {
	var req admission.RequiredCapabilities
	if n.Metadata == nil || n.Metadata.Capabilities == nil {
		return req
	}
	c := n.Metadata.Capabilities
	req.MemoryGB = c.MemoryGB
	if c.GPU != nil {
		req.NeedsGPU = true
		if mem, ok := c.GPU["memory_gb"].(float64); ok {
			req.GPUMemoryGB = mem
		}
	}
	if n.Metadata.UseDocker {
		req.NeedsDocker = true
	}
	return req
}
