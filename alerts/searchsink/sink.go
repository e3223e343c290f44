// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package searchsink implements a health.Sink indexing every alert into
// OpenSearch for later querying/dashboards, following the same
// best-effort vendor-client-call shape as nodes/llm and nodes/stt.
package searchsink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/health"
)

// Sink indexes every health.Alert it receives as a document in index.
type Sink struct {
	client *opensearch.Client
	index  string
	logger logging.Logger
}


// NewSink constructs a Sink against the OpenSearch cluster at addresses,
// indexing documents into index.
func NewSink(logger logging.Logger, addresses []string, username, password, index string) (*Sink, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: addresses,
		Username:  username,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("searchsink: create client: %w", err)
	}
	return &Sink{client: client, index: index, logger: logger}, nil
}

// HandleAlert implements health.Sink by indexing a's wire form
// ({type, ts, relative_ms, session_id, data}) as a document.
func (s *Sink) HandleAlert(a health.Alert) {
	payload, err := json.Marshal(a.Wire())
	if err != nil {
		s.logger.Errorw("searchsink: marshal alert failed", "error", err)
		return
	}

	req := opensearchapi.IndexRequest{
		Index: s.index,
		Body:  bytes.NewReader(payload),
	}
	resp, err := req.Do(context.Background(), s.client)
	if err != nil {
		s.logger.Errorw("searchsink: index request failed", "error", err, "session", a.SessionID)
		return
	}
	defer resp.Body.Close()
	if resp.IsError() {
		s.logger.Errorw("searchsink: index response error", "status", resp.Status(), "session", a.SessionID)
	}
}

var _ health.Sink = (*Sink)(nil)
