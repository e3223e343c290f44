// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package llm implements Text -> Text NodeExecutors wrapping hosted
// chat-completion providers. Provider selection is one switch over a
// lowercased provider name dispatching to a small provider-specific
// client behind the unexported `completer` interface; each vendor's own
// SDK is called directly.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// completer is the minimal contract every provider adapter satisfies: turn
// a prompt (optionally preceded by a system instruction) into a reply.
type completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// newCompleter resolves a provider name (case-insensitively, same
// normalization integration_client.go applies) to a completer, failing
// closed on anything unrecognized the way every switch in that file does.
func newCompleter(provider, model, apiKey string) (completer, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "anthropic":
		return newAnthropicCompleter(model, apiKey), nil
	case "openai":
		return newOpenAICompleter(model, apiKey), nil
	case "cohere":
		return newCohereCompleter(model, apiKey), nil
	case "google", "gemini":
		return newGenAICompleter(model, apiKey), nil
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", provider)
	}
}
