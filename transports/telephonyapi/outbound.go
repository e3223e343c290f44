// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package telephonyapi

import (
	"fmt"

	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	vng "github.com/vonage/vonage-go-sdk"

	"github.com/twilio/twilio-go"
)

// TwilioClient wraps a twilio.RestClient, placing the outbound call
// this package's webhook handlers then pick up status callbacks for.
type TwilioClient struct {
	client *twilio.RestClient
}

// NewTwilioClient constructs a TwilioClient from an account SID/auth
// token pair, mirroring twl.ClientParam's credential shape.
func NewTwilioClient(accountSID, authToken string) *TwilioClient {
	return &TwilioClient{client: twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})}
}

// PlaceCall originates an outbound call from "from" to "to", directing
// Twilio to fetch call instructions (and deliver status callbacks) from
// statusCallbackURL.
func (c *TwilioClient) PlaceCall(to, from, statusCallbackURL string) (string, error) {
	params := &openapi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetUrl(statusCallbackURL)
	params.SetStatusCallback(statusCallbackURL)

	resp, err := c.client.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("telephonyapi: twilio create call: %w", err)
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("telephonyapi: twilio create call returned no SID")
	}
	return *resp.Sid, nil
}

// VonageClient wraps a Vonage application-key auth.
type VonageClient struct {
	auth  vng.Auth
	voice *vng.VoiceClient
}

// NewVonageClient constructs a VonageClient from an application id and
// its private key, mirroring vg.Auth's credential shape.
func NewVonageClient(applicationID string, privateKey []byte) (*VonageClient, error) {
	auth, err := vng.CreateAuthFromAppPrivateKey(applicationID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("telephonyapi: vonage auth: %w", err)
	}
	voice, err := vng.NewVoiceClient(auth)
	if err != nil {
		return nil, fmt.Errorf("telephonyapi: vonage voice client: %w", err)
	}
	return &VonageClient{auth: auth, voice: voice}, nil
}

// PlaceCall originates an outbound call from "from" to "to", setting
// statusCallbackURL as both the answer URL Vonage fetches call
// instructions from and the event URL it delivers status events to.
func (c *VonageClient) PlaceCall(to, from, statusCallbackURL string) (string, error) {
	result, _, err := c.voice.CreateCall(vng.CreateCallReq{
		To: []vng.CallTo{{Type: "phone", Number: to}},
		From: vng.CallFrom{
			Type:   "phone",
			Number: from,
		},
		AnswerUrl: []string{statusCallbackURL},
		EventUrl:  []string{statusCallbackURL},
	})
	if err != nil {
		return "", fmt.Errorf("telephonyapi: vonage create call: %w", err)
	}
	return result.Uuid, nil
}
