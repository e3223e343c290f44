// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package llm

import (
	"context"
	"fmt"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/option"
)

const defaultCohereModel = "command-r-plus"

type cohereCompleter struct {
	client *cohereclient.Client
	model  string
}

func newCohereCompleter(model, apiKey string) *cohereCompleter {
	if model == "" {
		model = defaultCohereModel
	}
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, cohereclient.WithToken(apiKey))
	}
	return &cohereCompleter{
		client: cohereclient.NewClient(opts...),
		model:  model,
	}
}

func (c *cohereCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	req := &cohere.ChatRequest{
		Model:   &c.model,
		Message: prompt,
	}
	if system != "" {
		req.Preamble = &system
	}
	resp, err := c.client.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm: cohere completion: %w", err)
	}
	return resp.Text, nil
}
