// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package manifest parses and validates the v1 pipeline manifest and
// builds the executable Graph from it.
package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/rapidaai/streamrt/pkg/utils"
)

// SupportedVersion is the only manifest schema version this scheduler
// understands.
const SupportedVersion = "v1"

// ExecutorKind names where a node's process() call executes.
type ExecutorKind string

const (
	ExecutorInproc    ExecutorKind = "inproc"
	ExecutorMultiproc ExecutorKind = "multiproc"
	ExecutorDocker    ExecutorKind = "docker"
)

// Placement is the explicit placement hint a manifest node may carry under
// metadata.execution.placement.
type Placement string

const (
	PlacementAnywhere Placement = "anywhere"
	PlacementWASI     Placement = "wasi"
	PlacementNative   Placement = "native"
	PlacementRemote   Placement = "remote"
)

// DockerConfig is the exhaustive Docker-node configuration field set a
// manifest node may carry under metadata.docker_config.
type DockerConfig struct {
	PythonVersion  string            `json:"python_version,omitempty"`
	BaseImage      string            `json:"base_image,omitempty"`
	SystemPackages []string          `json:"system_packages,omitempty"`
	PythonPackages []string          `json:"python_packages,omitempty"`
	MemoryMB       int               `json:"memory_mb,omitempty"`
	CPUCores       float64           `json:"cpu_cores,omitempty"`
	ShmSizeMB      int               `json:"shm_size_mb,omitempty"`
	GPUDevices     []string          `json:"gpu_devices,omitempty"`
	EnvVars        map[string]string `json:"env_vars,omitempty"`
	Volumes        []VolumeMount     `json:"volumes,omitempty"`
}

// VolumeMount is one entry of DockerConfig.Volumes.
type VolumeMount struct {
	HostPath      string `json:"host_path"`
	ContainerPath string `json:"container_path"`
	ReadOnly      bool   `json:"read_only,omitempty"`
}

// ExecutionHints carries the explicit placement override a node may embed
// under metadata.execution; capability declarations live in CapabilityHints.
type ExecutionHints struct {
	Placement Placement `json:"placement,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// CapabilityHints mirrors metadata.capabilities in the wire format.
type CapabilityHints struct {
	GPU      map[string]interface{} `json:"gpu,omitempty"`
	MemoryGB float64                `json:"memory_gb,omitempty"`
}

// NodeMetadata is the free-form per-node metadata object, typed for the
// fields the scheduler itself interprets (placement, docker, capabilities);
// any other metadata key is dropped by Parse.
type NodeMetadata struct {
	UseDocker    bool             `json:"use_docker,omitempty"`
	DockerConfig *DockerConfig    `json:"docker_config,omitempty"`
	Execution    *ExecutionHints  `json:"execution,omitempty"`
	Capabilities *CapabilityHints `json:"capabilities,omitempty"`
}

// Node is one manifest node entry.
type Node struct {
	ID       string                 `json:"id"`
	NodeType string                 `json:"node_type"`
	Params   map[string]interface{} `json:"params,omitempty"`
	Executor ExecutorKind           `json:"executor,omitempty"`
	Metadata *NodeMetadata          `json:"metadata,omitempty"`

	// SequenceField, when non-empty, makes the session reassemble this
	// node's interleaved inputs in Item.Sequence order (OrderedMerge) before
	// Process. The value itself is not read as a key; empty (the default)
	// disables reassembly.
	SequenceField string `json:"sequence_field,omitempty"`
}

// Connection is one DAG edge.
type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Manifest is the parsed, but not yet graph-built, pipeline description.
type Manifest struct {
	Version     string                 `json:"version"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Nodes       []Node                 `json:"nodes"`
	Connections []Connection           `json:"connections"`
}

// InvalidManifest reports a schema or structural violation found during
// Parse. BuildGraph reports cycles as *CycleError instead.
type InvalidManifest struct {
	Reason string
}

func (e *InvalidManifest) Error() string { return fmt.Sprintf("invalid manifest: %s", e.Reason) }

// Parse unmarshals and structurally validates raw JSON into a Manifest.
// Failure modes: unknown version, duplicate ids, dangling
// edges, cycles. Cycle detection is deferred to BuildGraph, which can
// report the offending node ids; Parse only rejects what JSON-level
// validation can catch cheaply.
func Parse(raw []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return Manifest{}, &InvalidManifest{Reason: "malformed json: " + err.Error()}
	}

	if utils.IsEmpty(m.Version) || m.Version != SupportedVersion {
		return Manifest{}, &InvalidManifest{Reason: fmt.Sprintf("unsupported version %q", m.Version)}
	}
	if len(m.Nodes) == 0 {
		return Manifest{}, &InvalidManifest{Reason: "manifest has no nodes"}
	}

	seen := make(map[string]struct{}, len(m.Nodes))
	for _, n := range m.Nodes {
		if utils.IsEmpty(n.ID) {
			return Manifest{}, &InvalidManifest{Reason: "node with empty id"}
		}
		if utils.IsEmpty(n.NodeType) {
			return Manifest{}, &InvalidManifest{Reason: fmt.Sprintf("node %q missing node_type", n.ID)}
		}
		if _, dup := seen[n.ID]; dup {
			return Manifest{}, &InvalidManifest{Reason: fmt.Sprintf("duplicate node id %q", n.ID)}
		}
		seen[n.ID] = struct{}{}
	}

	for _, c := range m.Connections {
		if _, ok := seen[c.From]; !ok {
			return Manifest{}, &InvalidManifest{Reason: fmt.Sprintf("connection references unknown node %q", c.From)}
		}
		if _, ok := seen[c.To]; !ok {
			return Manifest{}, &InvalidManifest{Reason: fmt.Sprintf("connection references unknown node %q", c.To)}
		}
	}

	return m, nil
}

// Serialise renders the Manifest back to its canonical JSON form.
// Parse(Serialise(m)) == m for any valid m.
func Serialise(m Manifest) ([]byte, error) {
	return json.Marshal(m)
}
