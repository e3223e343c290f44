// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package telephonyapi

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTwilioForm_ExtractsCallFields(t *testing.T) {
	form := url.Values{
		"CallSid":    {"CA123"},
		"From":       {"+15551234567"},
		"To":         {"+15557654321"},
		"CallStatus": {"ringing"},
	}
	req, err := http.NewRequest(http.MethodPost, "/twilio/status", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	event, err := parseTwilioForm(req)
	require.NoError(t, err)
	require.Equal(t, "twilio", event.Provider)
	require.Equal(t, "CA123", event.CallSID)
	require.Equal(t, "ringing", event.Status)
	require.False(t, event.IsTerminal())
}

func TestParseVonageJSON_ExtractsCallFields(t *testing.T) {
	body := `{"uuid":"vg-1","from":"15551234567","to":"15557654321","status":"completed"}`
	event, err := parseVonageJSON([]byte(body))
	require.NoError(t, err)
	require.Equal(t, "vonage", event.Provider)
	require.Equal(t, "vg-1", event.CallSID)
	require.True(t, event.IsTerminal())
}

func TestCallEvent_IsTerminal(t *testing.T) {
	require.True(t, CallEvent{Status: "busy"}.IsTerminal())
	require.False(t, CallEvent{Status: "in-progress"}.IsTerminal())
}
