package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the Synapse orchestrator.
type Config struct {
	Port      int
	Version   string
	Pipeline  PipelineConfig
	RateLimit RateLimitConfig
	Telemetry TelemetryConfig
}

type PipelineConfig struct {
	// AgentTimeout bounds every agent invocation. A timed-out agent is
	// reported as a failed result; siblings keep running.
	AgentTimeout time.Duration

	// ProvenanceCapacity is the ring buffer size of the provenance store.
	ProvenanceCapacity int

	// MemoryCapacity bounds the in-memory memory store per user.
	MemoryCapacity int
}

type RateLimitConfig struct {
	WindowMs    int
	MaxRequests int
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envInt("SYNAPSE_PORT", 8080),
		Version: envStr("SYNAPSE_VERSION", "0.4.0"),
		Pipeline: PipelineConfig{
			AgentTimeout:       envDuration("SYNAPSE_AGENT_TIMEOUT", 30*time.Second),
			ProvenanceCapacity: envInt("SYNAPSE_PROVENANCE_CAPACITY", 1000),
			MemoryCapacity:     envInt("SYNAPSE_MEMORY_CAPACITY", 500),
		},
		RateLimit: RateLimitConfig{
			WindowMs:    envInt("SYNAPSE_RATE_WINDOW_MS", 60000),
			MaxRequests: envInt("SYNAPSE_RATE_MAX_REQUESTS", 30),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", true),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "synapse-orchestrator"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
