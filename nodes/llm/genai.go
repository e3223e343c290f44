// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const defaultGenAIModel = "gemini-2.0-flash"

// genAICompleter wraps google.golang.org/genai. Unlike the other three
// providers the client is constructed lazily on first Complete call since
// genai.NewClient itself takes a context.
type genAICompleter struct {
	model  string
	apiKey string
}

func newGenAICompleter(model, apiKey string) *genAICompleter {
	if model == "" {
		model = defaultGenAIModel
	}
	return &genAICompleter{model: model, apiKey: apiKey}
}

func (c *genAICompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: c.apiKey})
	if err != nil {
		return "", fmt.Errorf("llm: genai client: %w", err)
	}

	text := prompt
	if system != "" {
		text = system + "\n\n" + prompt
	}
	resp, err := client.Models.GenerateContent(ctx, c.model, genai.Text(text), nil)
	if err != nil {
		return "", fmt.Errorf("llm: genai completion: %w", err)
	}
	return resp.Text(), nil
}
