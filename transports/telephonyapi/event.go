// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package telephonyapi implements thin transport.PipelineTransport
// front-ends translating Twilio/Vonage call-status webhooks into
// StreamSession traffic, and placing outbound calls through each
// provider's REST client. Each provider adapter holds only the vendor
// client construction; the webhook handlers share a
// JSON-first/form-encoded-fallback
// parsing this package generalizes to Twilio/Vonage's own callback shapes.
package telephonyapi

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// CallEvent is the provider-agnostic shape a Twilio or Vonage webhook
// call-status payload is normalized into.
type CallEvent struct {
	Provider string
	CallSID  string
	From     string
	To       string
	Status   string
	Raw      map[string]interface{}
}

// IsTerminal reports whether status denotes the call has ended, the
// trigger this package uses to send ControlEndOfStream and close the
// session.
func (e CallEvent) IsTerminal() bool {
	switch e.Status {
	case "completed", "failed", "busy", "no-answer", "canceled", "hangup":
		return true
	default:
		return false
	}
}

// parseTwilioForm parses Twilio's form-encoded status callback
// (application/x-www-form-urlencoded, per Twilio's webhook convention).
func parseTwilioForm(r *http.Request) (CallEvent, error) {
	if err := r.ParseForm(); err != nil {
		return CallEvent{}, fmt.Errorf("telephonyapi: parse twilio form: %w", err)
	}
	raw := make(map[string]interface{}, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			raw[k] = v[0]
		}
	}
	return CallEvent{
		Provider: "twilio",
		CallSID:  r.PostFormValue("CallSid"),
		From:     r.PostFormValue("From"),
		To:       r.PostFormValue("To"),
		Status:   r.PostFormValue("CallStatus"),
		Raw:      raw,
	}, nil
}

// parseVonageJSON parses Vonage's JSON call-status webhook body.
func parseVonageJSON(body []byte) (CallEvent, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return CallEvent{}, fmt.Errorf("telephonyapi: parse vonage payload: %w", err)
	}
	str := func(key string) string {
		s, _ := raw[key].(string)
		return s
	}
	return CallEvent{
		Provider: "vonage",
		CallSID:  str("uuid"),
		From:     str("from"),
		To:       str("to"),
		Status:   str("status"),
		Raw:      raw,
	}, nil
}
