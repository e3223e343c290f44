// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package node

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/rapidaai/streamrt/pkg/utils"
)

// Constructor builds one Executor instance from a manifest node's raw
// params map. Constructors are expected to decode params into their own
// typed struct via DecodeParams, so a bad manifest fails at registry.Build
// time rather than mid-stream.
type Constructor func(rawParams map[string]interface{}) (Executor, error)

var validate = validator.New()

// DecodeParams decodes raw (JSON-unmarshalled) params into dst, a pointer to
// a node-specific params struct carrying `mapstructure` and
// `validate` tags, then runs struct validation. Node constructors call this
// first thing so malformed params are reported before a session ever starts.
func DecodeParams(raw map[string]interface{}, dst interface{}) error {
	if err := mapstructure.Decode(raw, dst); err != nil {
		return fmt.Errorf("decoding node params: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("validating node params: %w", err)
	}
	return nil
}

// Registry maps node_type strings (as they appear in manifest node.node_type)
// to Constructors. The zero value is not usable; use NewRegistry.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register adds a constructor under nodeType. Intended for package-init-time
// registration of built-in node types; panics on a duplicate nodeType since
// that indicates a programming error, not a runtime/manifest error.
func (r *Registry) Register(nodeType string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ctors[nodeType]; exists {
		panic(fmt.Sprintf("node type %q already registered", nodeType))
	}
	r.ctors[nodeType] = ctor
}

// RegisterWithLock registers or replaces a constructor at runtime — used for
// dynamically loaded node types (e.g. a Docker-executed node whose
// constructor is only known once its container image manifest is fetched).
// Unlike Register it does not panic on an existing entry; it replaces it.
func (r *Registry) RegisterWithLock(nodeType string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[nodeType] = ctor
}

// Lookup returns the constructor registered for nodeType, if any.
func (r *Registry) Lookup(nodeType string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.ctors[nodeType]
	return ctor, ok
}

// Build resolves nodeType and invokes its constructor with rawParams,
// returning an UnknownNodeType error if nodeType was never registered.
// nodeType may carry an optional "@vrsn_<id>" version pin (e.g.
// "azure_tts@vrsn_7") for a node type whose constructor is swapped out from
// under a fixed name as new versions are registered via RegisterWithLock;
// the pin is parsed and reported on UnknownNodeType, but lookup itself
// still keys on the base type name since pin-aware dispatch is the
// constructor's own responsibility (it receives rawParams and can act on
// whatever version metadata the manifest also carries there).
func (r *Registry) Build(nodeType string, rawParams map[string]interface{}) (Executor, error) {
	baseType, _ := splitNodeTypeVersion(nodeType)
	ctor, ok := r.Lookup(baseType)
	if !ok {
		return nil, &UnknownNodeType{NodeType: baseType}
	}
	return ctor(rawParams)
}

// splitNodeTypeVersion separates a manifest node_type from its optional
// "@vrsn_<id>" version pin, using pkg/utils.GetVersionDefinition to parse
// the pin itself. version is nil when nodeType carries no pin or the pin
// doesn't parse as "vrsn_<uint64>".
func splitNodeTypeVersion(nodeType string) (base string, version *uint64) {
	base, suffix, found := strings.Cut(nodeType, "@")
	if !found {
		return nodeType, nil
	}
	return base, utils.GetVersionDefinition(suffix)
}

// Types returns the sorted-by-caller node_type strings currently registered;
// callers needing deterministic order should sort the result themselves.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ctors))
	for t := range r.ctors {
		out = append(out, t)
	}
	return out
}

// UnknownNodeType is returned by Registry.Build for a node_type with no
// registered constructor.
type UnknownNodeType struct {
	NodeType string
}

func (e *UnknownNodeType) Error() string {
	return fmt.Sprintf("unknown node type %q", e.NodeType)
}
