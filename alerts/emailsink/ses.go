// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package emailsink

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type sesEmailer struct {
	client      *ses.Client
	fromAddress string
	toAddress   string
}

func newSESEmailer(ctx context.Context, region, fromAddress, toAddress string) (*sesEmailer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("emailsink: load aws config: %w", err)
	}
	return &sesEmailer{client: ses.NewFromConfig(cfg), fromAddress: fromAddress, toAddress: toAddress}, nil
}

func (e *sesEmailer) Send(ctx context.Context, subject, body string) error {
	_, err := e.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      &e.fromAddress,
		Destination: &types.Destination{ToAddresses: []string{e.toAddress}},
		Message: &types.Message{
			Subject: &types.Content{Data: &subject},
			Body:    &types.Body{Text: &types.Content{Data: &body}},
		},
	})
	if err != nil {
		return fmt.Errorf("emailsink: ses send: %w", err)
	}
	return nil
}
