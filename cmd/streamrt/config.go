// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package main assembles the streamrt process: a node registry with
// every built-in NodeExecutor registered, a scheduler.PipelineRunner
// behind it, and every transport front-end (gRPC, WebSocket, WebRTC,
// SIP, telephony) serving that one runner. Configuration is loaded
// through viper and validated with validator.Struct before anything is
// constructed.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/rapidaai/streamrt/pkg/utils"
)

// appConfig holds every operational setting this process's main needs
// beyond scheduler.Config (internal/config.SchedulerConfig), which is
// loaded separately via its own Load().
type appConfig struct {
	LogLevel string `mapstructure:"log_level" validate:"required"`

	// Environment selects production-vs-development process behavior
	// (gin release mode in production) via pkg/utils.RapidaEnvironment
	// rather than threading a raw string through every call site. The CORS
	// policy does not depend on it.
	Environment string `mapstructure:"environment"`

	HTTPAddr string `mapstructure:"http_addr" validate:"required"`
	GRPCAddr string `mapstructure:"grpc_addr" validate:"required"`

	RedisAddr   string `mapstructure:"redis_addr"`
	MaxSessions int    `mapstructure:"max_sessions"`

	HasGPU      bool    `mapstructure:"has_gpu"`
	GPUMemoryGB float64 `mapstructure:"gpu_memory_gb"`
	MemoryGB    float64 `mapstructure:"memory_gb"`
	HasDocker   bool    `mapstructure:"has_docker"`

	SIPEnabled    bool   `mapstructure:"sip_enabled"`
	SIPListenAddr string `mapstructure:"sip_listen_addr"`
	SIPLocalIP    string `mapstructure:"sip_local_ip"`
	SIPRTPPortLow int    `mapstructure:"sip_rtp_port_low"`
	SIPRTPPortHi  int    `mapstructure:"sip_rtp_port_hi"`

	EmailProvider    string `mapstructure:"email_provider"`
	SendgridAPIKey   string `mapstructure:"sendgrid_api_key"`
	EmailFromAddress string `mapstructure:"email_from_address"`
	EmailToAddress   string `mapstructure:"email_to_address"`
	SESRegion        string `mapstructure:"ses_region"`

	OpenSearchAddr  string `mapstructure:"opensearch_addr"`
	OpenSearchIndex string `mapstructure:"opensearch_index"`

	DBDialect string `mapstructure:"db_dialect" validate:"oneof=postgres sqlite3"`
	DBDSN     string `mapstructure:"db_dsn" validate:"required"`

	// DefaultManifestPath, when set, is loaded and handed to the telephony
	// front-end as the manifest run for every inbound PSTN call — those
	// calls arrive via a provider status callback, not a client-supplied
	// offer body, so there is nowhere else for a manifest to come from.
	DefaultManifestPath string `mapstructure:"default_manifest_path"`
}

func loadAppConfig() (*appConfig, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("__"))
	v.AddConfigPath(".")
	v.SetConfigName(".env")
	if path := os.Getenv("ENV_PATH"); path != "" {
		log.Printf("streamrt: loading config from %s", path)
		v.SetConfigFile(path)
	}
	v.SetConfigType("env")
	v.AutomaticEnv()

	setAppConfigDefaults(v)
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("streamrt: reading config from environment variables only: %v", err)
	}

	var cfg appConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("streamrt: unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("streamrt: invalid config: %w", err)
	}
	return &cfg, nil
}

// rapidaEnvironment resolves Environment to pkg/utils.RapidaEnvironment,
// defaulting to DEVELOPMENT for anything unrecognized.
func (c *appConfig) rapidaEnvironment() utils.RapidaEnvironment {
	return utils.FromEnvironmentStr(c.Environment)
}

func setAppConfigDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ENVIRONMENT", utils.DEVELOPMENT.Get())
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("MAX_SESSIONS", 256)
	v.SetDefault("SIP_ENABLED", false)
	v.SetDefault("SIP_LISTEN_ADDR", "0.0.0.0:5060")
	v.SetDefault("SIP_LOCAL_IP", "127.0.0.1")
	v.SetDefault("SIP_RTP_PORT_LOW", 20000)
	v.SetDefault("SIP_RTP_PORT_HI", 20100)
	v.SetDefault("EMAIL_PROVIDER", "")
	v.SetDefault("OPENSEARCH_INDEX", "streamrt-alerts")
	v.SetDefault("DB_DIALECT", "sqlite3")
	v.SetDefault("DB_DSN", "streamrt.db")
}
