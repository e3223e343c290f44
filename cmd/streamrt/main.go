// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/rapidaai/streamrt/internal/config"
	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/admission"
	"github.com/rapidaai/streamrt/pkg/scheduler"
	"github.com/rapidaai/streamrt/pkg/store"
	"github.com/rapidaai/streamrt/pkg/transport"
	"github.com/rapidaai/streamrt/pkg/utils"
	"github.com/rapidaai/streamrt/transports/grpcapi"
	"github.com/rapidaai/streamrt/transports/sipapi"
	"github.com/rapidaai/streamrt/transports/telephonyapi"
	"github.com/rapidaai/streamrt/transports/webrtcapi"
	"github.com/rapidaai/streamrt/transports/websocketapi"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run assembles every component and blocks until the process receives
// SIGINT/SIGTERM, then drains in-flight sessions before returning. Split
// out of main so it returns an error instead of calling os.Exit directly.
func run() error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.Options{Level: cfg.LogLevel, JSON: true})
	if err != nil {
		return err
	}
	defer logger.Sync()

	env := cfg.rapidaEnvironment()
	if env == utils.PRODUCTION {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Infow("streamrt: starting", "environment", env.Get())

	schedCfg, err := config.Load("")
	if err != nil {
		logger.Errorw("failed loading scheduler config", "error", err)
		return err
	}
	schedCfg.MaxSessions = cfg.MaxSessions

	var admit *admission.Controller
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		instanceID, _ := os.Hostname()
		admit = admission.NewController(rdb, instanceID, cfg.MaxSessions, schedCfg.SessionMaxDuration)
		logger.Infow("admission: redis-backed controller attached", "redis_addr", cfg.RedisAddr)
	}

	reg := buildRegistry()

	promReg := prometheus.NewRegistry()
	bus, exporter, recorder, err := buildHealthBus(cfg, schedCfg, logger, promReg)
	if err != nil {
		logger.Errorw("failed wiring health bus", "error", err)
		return err
	}
	host := admission.HostCapabilities{
		HasGPU:      cfg.HasGPU,
		GPUMemoryGB: cfg.GPUMemoryGB,
		MemoryGB:    cfg.MemoryGB,
		HasDocker:   cfg.HasDocker,
	}

	sessionStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Errorw("failed opening session store", "error", err)
		return err
	}

	runner := scheduler.New(reg, admit, schedCfg,
		scheduler.WithLogger(logger),
		scheduler.WithHostCapabilities(host),
		scheduler.WithHealthBus(bus),
		scheduler.WithHealthTelemetry(recorder, exporter),
	)
	recordedRunner := store.NewRecordingTransport(runner, sessionStore, logger)
	var pipeline transport.PipelineTransport = recordedRunner

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var defaultManifest []byte
	if cfg.DefaultManifestPath != "" {
		defaultManifest, err = os.ReadFile(cfg.DefaultManifestPath)
		if err != nil {
			logger.Errorw("failed reading default manifest", "path", cfg.DefaultManifestPath, "error", err)
			return err
		}
	}

	httpSrv := buildHTTPServer(cfg, pipeline, logger, promReg, defaultManifest)
	grpcSrv := grpcapi.NewServer(pipeline, logger)

	errCh := make(chan error, 3)

	go func() {
		logger.Infow("http listener starting", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	go func() {
		logger.Infow("grpc listener starting", "addr", cfg.GRPCAddr)
		if err := grpcSrv.ListenAndServe(cfg.GRPCAddr); err != nil {
			errCh <- err
		}
	}()

	var sipSrv *sipapi.Server
	if cfg.SIPEnabled {
		sipSrv, err = sipapi.NewServer(pipeline, logger, cfg.SIPLocalIP, cfg.SIPRTPPortLow, cfg.SIPRTPPortHi)
		if err != nil {
			logger.Errorw("failed constructing sip server", "error", err)
			return err
		}
		if defaultManifest != nil {
			sipSrv.SetManifest(defaultManifest)
		}
		go func() {
			logger.Infow("sip listener starting", "addr", cfg.SIPListenAddr)
			if err := sipSrv.ListenAndServe(ctx, "udp", cfg.SIPListenAddr); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Infow("shutdown signal received")
	case err := <-errCh:
		logger.Errorw("listener failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("http graceful shutdown failed", "error", err)
	}
	grpcSrv.Shutdown()
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("scheduler shutdown failed", "error", err)
	}
	return nil
}

func buildHTTPServer(cfg *appConfig, pipeline transport.PipelineTransport, logger logging.Logger, promReg *prometheus.Registry, defaultManifest []byte) *http.Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		AllowCredentials: false,
	}))

	engine.GET("/healthz/", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/readiness/", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))

	wsSrv := websocketapi.NewServer(pipeline, logger)
	engine.GET("/v1/ws", gin.WrapH(wsSrv))

	webrtcSrv := webrtcapi.NewServer(pipeline, logger, nil)
	engine.POST("/v1/webrtc/offer", gin.WrapH(webrtcSrv))

	telSrv := telephonyapi.NewServer(pipeline, logger, defaultManifest)
	engine.POST("/v1/telephony/twilio/status", gin.WrapF(telSrv.TwilioStatusCallback))
	engine.POST("/v1/telephony/vonage/status", gin.WrapF(telSrv.VonageStatusCallback))

	return &http.Server{Addr: cfg.HTTPAddr, Handler: engine}
}
