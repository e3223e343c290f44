// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package config loads the scheduler's runtime configuration from
// environment variables, with an optional YAML file of defaults
// underneath them.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SchedulerConfig holds every scheduler timeout/limit; none are
// hard-coded in the scheduler itself.
type SchedulerConfig struct {
	SessionMaxDuration  time.Duration `mapstructure:"session_max_duration"`
	SessionIdleTimeout  time.Duration `mapstructure:"session_idle_timeout"`
	MaxSessions         int           `mapstructure:"max_sessions"`
	NodeProcessTimeout  time.Duration `mapstructure:"node_process_timeout"`
	IPCHeartbeatPeriod  time.Duration `mapstructure:"ipc_heartbeat_period"`
	IPCShmPath          string        `mapstructure:"ipc_shm_path"`
	AdmissionTimeout    time.Duration `mapstructure:"admission_timeout"`
	AlertCoalesceWindow time.Duration `mapstructure:"alert_coalesce_window"`
}

// DefaultSchedulerConfig returns the baseline values; every field can be
// overridden by an environment variable or config file key.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		SessionMaxDuration:  30 * time.Minute,
		SessionIdleTimeout:  20 * time.Second,
		MaxSessions:         256,
		NodeProcessTimeout:  5 * time.Second,
		IPCHeartbeatPeriod:  1 * time.Second,
		IPCShmPath:          "/dev/shm/streamrt",
		AdmissionTimeout:    2 * time.Second,
		AlertCoalesceWindow: 500 * time.Millisecond,
	}
}

// Load reads SchedulerConfig from the environment (SESSION_MAX_DURATION,
// SESSION_IDLE_TIMEOUT, MAX_SESSIONS, NODE_PROCESS_TIMEOUT_MS,
// IPC_HEARTBEAT_MS, IPC_SHM_PATH) and an optional configFile,
// falling back to DefaultSchedulerConfig for anything unset.
func Load(configFile string) (SchedulerConfig, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := DefaultSchedulerConfig()
	v.SetDefault("session_max_duration", def.SessionMaxDuration)
	v.SetDefault("session_idle_timeout", def.SessionIdleTimeout)
	v.SetDefault("max_sessions", def.MaxSessions)
	v.SetDefault("node_process_timeout", def.NodeProcessTimeout)
	v.SetDefault("ipc_heartbeat_period", def.IPCHeartbeatPeriod)
	v.SetDefault("ipc_shm_path", def.IPCShmPath)
	v.SetDefault("admission_timeout", def.AdmissionTimeout)
	v.SetDefault("alert_coalesce_window", def.AlertCoalesceWindow)

	// These exact environment variable spellings are the public contract; bind them
	// explicitly since they don't follow the mapstructure snake_case keys.
	bindings := map[string]string{
		"session_max_duration":  "SESSION_MAX_DURATION",
		"session_idle_timeout":  "SESSION_IDLE_TIMEOUT",
		"max_sessions":          "MAX_SESSIONS",
		"node_process_timeout":  "NODE_PROCESS_TIMEOUT_MS",
		"ipc_heartbeat_period":  "IPC_HEARTBEAT_MS",
		"ipc_shm_path":          "IPC_SHM_PATH",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return SchedulerConfig{}, err
		}
	}

	cfg := def
	cfg.MaxSessions = v.GetInt("max_sessions")
	cfg.IPCShmPath = v.GetString("ipc_shm_path")

	if d := v.GetInt64("node_process_timeout"); d > 0 && v.IsSet("node_process_timeout") {
		cfg.NodeProcessTimeout = millisOrDuration(v, "node_process_timeout")
	}
	if v.IsSet("ipc_heartbeat_period") {
		cfg.IPCHeartbeatPeriod = millisOrDuration(v, "ipc_heartbeat_period")
	}
	if v.IsSet("session_max_duration") {
		cfg.SessionMaxDuration = v.GetDuration("session_max_duration")
	}
	if v.IsSet("session_idle_timeout") {
		cfg.SessionIdleTimeout = v.GetDuration("session_idle_timeout")
	}
	if v.IsSet("admission_timeout") {
		cfg.AdmissionTimeout = v.GetDuration("admission_timeout")
	}
	if v.IsSet("alert_coalesce_window") {
		cfg.AlertCoalesceWindow = v.GetDuration("alert_coalesce_window")
	}

	return cfg, nil
}

// millisOrDuration interprets the raw value as milliseconds when it parses
// as a bare integer (the _MS env var convention), falling back to viper's
// duration parsing otherwise (1s, 500ms, ...).
func millisOrDuration(v *viper.Viper, key string) time.Duration {
	if ms := v.GetInt64(key); ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return v.GetDuration(key)
}
