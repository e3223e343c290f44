// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package emailsink

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendgridEmailer struct {
	apiKey      string
	fromAddress string
	fromName    string
	toAddress   string
}

func (e *sendgridEmailer) Send(ctx context.Context, subject, body string) error {
	from := mail.NewEmail(e.fromName, e.fromAddress)
	to := mail.NewEmail(e.toAddress, e.toAddress)
	message := mail.NewSingleEmail(from, subject, to, body, "")

	client := sendgrid.NewSendClient(e.apiKey)
	resp, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("emailsink: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("emailsink: sendgrid responded %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
