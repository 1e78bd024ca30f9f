// Package config loads process configuration from the environment into a
// typed Config, following the explicit-fields/sane-defaults/no-globals
// convention used throughout the runtime.
package config

import (
	"os"
	"strconv"
	"time"
)

// ModelProvider selects which backend internal/model dials.
type ModelProvider string

const (
	ProviderAnthropic ModelProvider = "anthropic"
	ProviderOpenAI    ModelProvider = "openai"
	ProviderBedrock   ModelProvider = "bedrock"
)

// Config is the full set of environment-derived settings the runtime needs
// to boot. Every field has a documented default; nothing panics on a
// missing optional variable.
type Config struct {
	// ListenAddr is the HTTP/WebSocket listen address.
	ListenAddr string

	// CORSOrigin is the single allowed front-end origin.
	CORSOrigin string

	// ModelProvider selects the LLM backend; ModelName overrides the
	// provider's default model identifier when set.
	ModelProvider ModelProvider
	ModelName     string

	AnthropicAPIKey string
	OpenAIAPIKey    string

	// AWS credentials for Bedrock are read by the AWS SDK's default
	// credential chain; only the region is read directly here.
	AWSRegion string

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string

	// HighCostCallCap is the default per-session cap on high-cost skill
	// invocations (§5 high-cost budget); a session may override it.
	HighCostCallCap int

	// EphemeralGCInterval is how often the whiteboard ephemeral-object
	// garbage collector scans live documents.
	EphemeralGCInterval time.Duration

	// LLMRetryAttempts bounds JSON-decode retries for executor/planner
	// LLM calls (§5 cancellation & timeouts).
	LLMRetryAttempts int

	// BoardStateTimeout bounds the get_board_state round trip to the
	// front end.
	BoardStateTimeout time.Duration

	// RateLimitInitialTPM/RateLimitMaxTPM seed the adaptive rate limiter
	// in front of the model client.
	RateLimitInitialTPM float64
	RateLimitMaxTPM     float64
}

// Load reads configuration from the environment, applying defaults for
// every optional variable. It does not validate that required credentials
// (LLM API key, Mongo/Redis URIs) are present; callers that need to fail
// fast on missing required configuration should check those fields
// explicitly after Load returns.
func Load() Config {
	return Config{
		ListenAddr: envOr("LISTEN_ADDR", ":8080"),
		CORSOrigin: envOr("CORS_ORIGIN", "*"),

		ModelProvider: ModelProvider(envOr("MODEL_PROVIDER", string(ProviderAnthropic))),
		ModelName:     os.Getenv("MODEL_NAME"),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AWSRegion:       envOr("AWS_REGION", "us-east-1"),

		MongoURI: envOr("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  envOr("MONGO_DB", "tutorcore"),

		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		HighCostCallCap:     envIntOr("HIGH_COST_CALL_CAP", 3),
		EphemeralGCInterval: envDurationOr("EPHEMERAL_GC_INTERVAL", 10*time.Second),

		LLMRetryAttempts:  envIntOr("LLM_RETRY_ATTEMPTS", 3),
		BoardStateTimeout: envDurationOr("BOARD_STATE_TIMEOUT", 20*time.Second),

		RateLimitInitialTPM: envFloatOr("RATE_LIMIT_INITIAL_TPM", 60000),
		RateLimitMaxTPM:     envFloatOr("RATE_LIMIT_MAX_TPM", 240000),
	}
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOr(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envFloatOr(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envDurationOr(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
