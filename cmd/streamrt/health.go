// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rapidaai/streamrt/alerts/emailsink"
	"github.com/rapidaai/streamrt/alerts/searchsink"
	"github.com/rapidaai/streamrt/internal/config"
	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/health"
)

// buildHealthBus wires the process-wide alert fan-out and telemetry: a
// PrometheusExporter sink is always attached so /metrics carries alert
// counters regardless of which (if any) external sinks are configured,
// plus a Recorder the sessions' taps feed their inter-arrival histograms
// into; then emailsink/searchsink are attached conditionally from
// appConfig, gated on whether their credentials were supplied.
func buildHealthBus(cfg *appConfig, schedCfg config.SchedulerConfig, logger logging.Logger, reg prometheus.Registerer) (*health.Bus, *health.PrometheusExporter, *health.Recorder, error) {
	exporter := health.NewPrometheusExporter(reg)
	recorder := health.NewRecorder(1024)
	bus := health.NewBus(schedCfg.AlertCoalesceWindow, exporter)

	switch cfg.EmailProvider {
	case "sendgrid":
		if cfg.SendgridAPIKey == "" {
			return nil, nil, nil, fmt.Errorf("cmd/streamrt: email_provider=sendgrid requires sendgrid_api_key")
		}
		bus.AddSink(emailsink.NewSendgridSink(logger, cfg.SendgridAPIKey, cfg.EmailFromAddress, "streamrt", cfg.EmailToAddress))
		logger.Infow("health: sendgrid alert sink attached", "to", cfg.EmailToAddress)
	case "ses":
		sink, err := emailsink.NewSESSink(context.Background(), logger, cfg.SESRegion, cfg.EmailFromAddress, cfg.EmailToAddress)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("cmd/streamrt: construct ses sink: %w", err)
		}
		bus.AddSink(sink)
		logger.Infow("health: ses alert sink attached", "to", cfg.EmailToAddress, "region", cfg.SESRegion)
	case "":
		// no email sink configured
	default:
		return nil, nil, nil, fmt.Errorf("cmd/streamrt: unknown email_provider %q", cfg.EmailProvider)
	}

	if cfg.OpenSearchAddr != "" {
		sink, err := searchsink.NewSink(logger, []string{cfg.OpenSearchAddr}, "", "", cfg.OpenSearchIndex)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("cmd/streamrt: construct opensearch sink: %w", err)
		}
		bus.AddSink(sink)
		logger.Infow("health: opensearch alert sink attached", "addr", cfg.OpenSearchAddr, "index", cfg.OpenSearchIndex)
	}

	return bus, exporter, recorder, nil
}
