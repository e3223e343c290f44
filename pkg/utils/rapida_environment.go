// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package utils

import "strings"

// RapidaEnvironment distinguishes production from everything else so
// transports can tighten behavior (stricter timeouts, disabled debug
// endpoints) without threading a raw string through the call chain.
type RapidaEnvironment int

const (
	DEVELOPMENT RapidaEnvironment = iota
	PRODUCTION
)

// Get returns the lowercase string form of e.
func (e RapidaEnvironment) Get() string {
	if e == PRODUCTION {
		return "production"
	}
	return "development"
}

// FromEnvironmentStr parses s case-insensitively, defaulting to
// DEVELOPMENT for anything unrecognized so a missing or malformed
// RAPIDA_ENVIRONMENT never accidentally enables production behavior.
func FromEnvironmentStr(s string) RapidaEnvironment {
	if strings.EqualFold(s, "production") {
		return PRODUCTION
	}
	return DEVELOPMENT
}
