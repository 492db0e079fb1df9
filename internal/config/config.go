// Package config loads the runtime's configuration from flags with
// environment-variable fallback, the way agents/docker-agent does it: a
// plain struct, a Validate() that fills defaults and returns sentinel
// errors, no third config source fighting the first two.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/rterrors"
)

// RuntimeConfig holds everything needed to start the process without code
// changes.
type RuntimeConfig struct {
	// ControlSocketPath is the well-known local stream socket the control
	// and debug endpoint binds.
	ControlSocketPath string

	// LogSocketPath is the local socket the logging façade's default sink
	// writes newline-terminated JSON records to.
	LogSocketPath string

	// PluginConfigPath points at the plugin driver host's configuration
	// file (name, path, enabled, type, per_plugin_config_path, venv_path?).
	PluginConfigPath string

	// BuildDir is scanned for libplc_*.so artifacts by the program loader.
	BuildDir string

	// MaxClients bounds concurrent control-socket clients.
	MaxClients int

	// StatsReportInterval is how often the statistics reporter logs (and,
	// if configured, fans out) a snapshot. Validate replaces a zero or
	// negative value with 30 seconds.
	StatsReportInterval time.Duration

	// NATSURL, if set, is used as an additional log-transport sink.
	NATSURL     string
	NATSSubject string

	// RedisURL and RedisChannel, if set, enable the read-only statistics
	// fan-out in internal/telemetry.
	RedisURL     string
	RedisChannel string

	// AuditDSN, if set, enables the Postgres-backed audit sink.
	AuditDSN string

	// AuthRequired gates START/STOP behind AUTH:<token> when true.
	AuthRequired bool
	// JWTSigningKey validates bearer tokens presented to AUTH.
	JWTSigningKey string
	// TOTPSecret, if set, requires a six-digit code suffixed to START/STOP.
	TOTPSecret string

	// OpsListenAddr serves /healthz and /metrics.
	OpsListenAddr string
}

// Validate fills defaults for unset fields and rejects configurations
// missing a value with no sensible default.
func (c *RuntimeConfig) Validate() error {
	if c.ControlSocketPath == "" {
		return rterrors.ErrMissingControlSocketPath
	}

	if c.PluginConfigPath == "" {
		c.PluginConfigPath = "./plugins.conf"
	}

	if c.BuildDir == "" {
		c.BuildDir = "./build"
	}

	if c.LogSocketPath == "" {
		c.LogSocketPath = "/run/runtime/plc_runtime.log.socket"
	}

	if c.MaxClients <= 0 {
		c.MaxClients = 1
	}

	if c.StatsReportInterval <= 0 {
		c.StatsReportInterval = 30 * time.Second
	}

	if c.OpsListenAddr == "" {
		c.OpsListenAddr = "127.0.0.1:9273"
	}

	return nil
}

// Load builds a RuntimeConfig from environment variables, used by
// cmd/plcruntime/main.go as the fallback layer underneath flags.
func Load() *RuntimeConfig {
	return &RuntimeConfig{
		ControlSocketPath:   getEnvOrDefault("PLCRT_CONTROL_SOCKET", "/run/runtime/plc_runtime.socket"),
		LogSocketPath:       getEnvOrDefault("PLCRT_LOG_SOCKET", "/run/runtime/plc_runtime.log.socket"),
		PluginConfigPath:    getEnvOrDefault("PLCRT_PLUGIN_CONFIG", "./plugins.conf"),
		BuildDir:            getEnvOrDefault("PLCRT_BUILD_DIR", "./build"),
		MaxClients:          getEnvIntOrDefault("PLCRT_MAX_CLIENTS", 1),
		StatsReportInterval: getEnvDurationOrDefault("PLCRT_STATS_INTERVAL", 30*time.Second),
		NATSURL:             os.Getenv("PLCRT_NATS_URL"),
		NATSSubject:         getEnvOrDefault("PLCRT_NATS_SUBJECT", "plc.runtime.log"),
		RedisURL:            os.Getenv("PLCRT_REDIS_URL"),
		RedisChannel:        getEnvOrDefault("PLCRT_REDIS_CHANNEL", "plc.runtime.stats"),
		AuditDSN:            os.Getenv("PLCRT_AUDIT_DSN"),
		AuthRequired:        getEnvBoolOrDefault("PLCRT_AUTH_REQUIRED", false),
		JWTSigningKey:       os.Getenv("PLCRT_JWT_SIGNING_KEY"),
		TOTPSecret:          os.Getenv("PLCRT_TOTP_SECRET"),
		OpsListenAddr:       getEnvOrDefault("PLCRT_OPS_ADDR", "127.0.0.1:9273"),
	}
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntOrDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBoolOrDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDurationOrDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
