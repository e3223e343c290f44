// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package utils

import (
	"strconv"
	"strings"
)

const versionPrefix = "vrsn_"

// GetVersionDefinition parses a "vrsn_<id>" reference (e.g. as used for
// pinning an assistant/node definition to a specific version) into its
// numeric id. "latest", empty, and malformed input all return nil so
// callers can treat them uniformly as "no pinned version".
func GetVersionDefinition(s string) *uint64 {
	if !strings.HasPrefix(s, versionPrefix) {
		return nil
	}
	idStr := strings.TrimPrefix(s, versionPrefix)
	if idStr == "" {
		return nil
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
