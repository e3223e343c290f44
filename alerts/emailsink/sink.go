// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package emailsink implements a health.Sink delivering alerts by email
// through a provider switch (SendGrid or SES), the same provider-dispatch
// shape as nodes/llm's completer and nodes/stt's transcriber.
package emailsink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/health"
)

// emailer is the provider-specific send operation each vendor client
// implements.
type emailer interface {
	Send(ctx context.Context, subject, body string) error
}

// Sink fans health.Alert values out as email notifications to a fixed
// recipient, through whichever provider it was constructed with.
type Sink struct {
	logger logging.Logger
	send   emailer
}

// NewSendgridSink constructs a Sink delivering over SendGrid.
func NewSendgridSink(logger logging.Logger, apiKey, fromAddress, fromName, toAddress string) *Sink {
	return &Sink{logger: logger, send: &sendgridEmailer{apiKey: apiKey, fromAddress: fromAddress, fromName: fromName, toAddress: toAddress}}
}

// NewSESSink constructs a Sink delivering over AWS SES in region.
func NewSESSink(ctx context.Context, logger logging.Logger, region, fromAddress, toAddress string) (*Sink, error) {
	e, err := newSESEmailer(ctx, region, fromAddress, toAddress)
	if err != nil {
		return nil, err
	}
	return &Sink{logger: logger, send: e}, nil
}

// HandleAlert implements health.Sink by emailing a's wire form.
func (s *Sink) HandleAlert(a health.Alert) {
	subject := fmt.Sprintf("streamrt alert: %s in session %s", a.Type, a.SessionID)
	body, err := json.MarshalIndent(a.Wire(), "", "  ")
	if err != nil {
		s.logger.Errorw("emailsink: marshal alert failed", "error", err, "session", a.SessionID)
		return
	}

	if err := s.send.Send(context.Background(), subject, string(body)); err != nil {
		s.logger.Errorw("emailsink: send failed", "error", err, "session", a.SessionID)
	}
}

var _ health.Sink = (*Sink)(nil)
