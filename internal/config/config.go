package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port           int
	DatabaseURL    string
	LogLevel       string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	Model          string
	EmbeddingModel string
	NatsURL        string
	NatsToken      string
	RedisAddr      string

	SupabaseURL            string
	SupabaseServiceRoleKey string
	SupabaseJWTSecret      string
	SitesBucket            string

	VapiAPIKey      string
	VapiAssistantID string
	VapiBaseURL     string

	APIToken      string
	TracesEnabled bool
}

func Load() Config {
	return Config{
		Port:           envInt("DREAMSEED_PORT", 8790),
		DatabaseURL:    envStr("DATABASE_URL", ""),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		OpenAIAPIKey:   envStr("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  envStr("OPENAI_BASE_URL", ""),
		Model:          envStr("DREAMSEED_MODEL", "gpt-4o-mini"),
		EmbeddingModel: envStr("DREAMSEED_EMBEDDING_MODEL", "text-embedding-3-small"),
		NatsURL:        envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:      envStr("NATS_TOKEN", ""),
		RedisAddr:      envStr("REDIS_ADDR", ""),

		SupabaseURL:            envStr("SUPABASE_URL", ""),
		SupabaseServiceRoleKey: envStr("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseJWTSecret:      envStr("SUPABASE_JWT_SECRET", ""),
		SitesBucket:            envStr("SITES_BUCKET", "generated-sites"),

		VapiAPIKey:      envStr("VAPI_API_KEY", ""),
		VapiAssistantID: envStr("VAPI_ASSISTANT_ID", ""),
		VapiBaseURL:     envStr("VAPI_BASE_URL", "https://api.vapi.ai"),

		APIToken:      envStr("DREAMSEED_API_TOKEN", ""),
		TracesEnabled: envBool("OTEL_TRACES_ENABLED", false),
	}
}

// SupabaseConfigured reports whether the PostgREST/Storage client can be built.
func (c Config) SupabaseConfigured() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceRoleKey != ""
}

// VapiConfigured reports whether assistant personalization can be pushed.
func (c Config) VapiConfigured() bool {
	return c.VapiAPIKey != "" && c.VapiAssistantID != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
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
