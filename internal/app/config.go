package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	ListenAddr string
	LogLevel   string

	DBDSN string

	// Provider credentials and endpoints. Base URLs are overridable for
	// testing against stub servers.
	DeepSeekAPIKey  string
	OpenAIAPIKey    string
	DeepSeekBaseURL string
	OpenAIBaseURL   string
	OpenAIModel     string // "" means the client default

	// Initial traffic distribution, replaced by a persisted split if one
	// exists.
	DeepSeekPercent int
	OpenAIPercent   int

	ProviderTimeoutSecs int

	// Usage log retention. 0 disables the cap.
	UsageLogMaxEntries int

	// Security & hardening.
	AdminToken      string   // guards /admin/v1; empty disables auth
	ExposeAdminKeys bool     // return API keys in the clear on the admin read
	CORSOrigins     []string // allowed CORS origins; empty = ["*"]
	RateLimitRPS    int      // requests per second per IP
	RateLimitBurst  int      // burst capacity per IP

	// OpenTelemetry tracing.
	OTelEnabled  bool
	OTelEndpoint string
}

func LoadConfig() (Config, error) {
	cfg := Config{
		ListenAddr: getEnv("HYBRIDGATE_LISTEN_ADDR", ":8080"),
		LogLevel:   getEnv("HYBRIDGATE_LOG_LEVEL", "info"),
		DBDSN:      getEnv("HYBRIDGATE_DB_DSN", "file:hybridgate.sqlite"),

		DeepSeekAPIKey:  getEnv("HYBRIDGATE_DEEPSEEK_API_KEY", ""),
		OpenAIAPIKey:    getEnv("HYBRIDGATE_OPENAI_API_KEY", ""),
		DeepSeekBaseURL: getEnv("HYBRIDGATE_DEEPSEEK_BASE_URL", ""),
		OpenAIBaseURL:   getEnv("HYBRIDGATE_OPENAI_BASE_URL", ""),
		OpenAIModel:     getEnv("HYBRIDGATE_OPENAI_MODEL", ""),

		DeepSeekPercent: getEnvInt("HYBRIDGATE_DEEPSEEK_PERCENT", 80),
		OpenAIPercent:   getEnvInt("HYBRIDGATE_OPENAI_PERCENT", 20),

		ProviderTimeoutSecs: getEnvInt("HYBRIDGATE_PROVIDER_TIMEOUT_SECS", 30),
		UsageLogMaxEntries:  getEnvInt("HYBRIDGATE_USAGE_LOG_MAX_ENTRIES", 10000),

		AdminToken:      getEnv("HYBRIDGATE_ADMIN_TOKEN", ""),
		ExposeAdminKeys: getEnvBool("HYBRIDGATE_ADMIN_EXPOSE_KEYS", false),
		CORSOrigins:     getEnvStringSlice("HYBRIDGATE_CORS_ORIGINS", nil),
		RateLimitRPS:    getEnvInt("HYBRIDGATE_RATE_LIMIT_RPS", 60),
		RateLimitBurst:  getEnvInt("HYBRIDGATE_RATE_LIMIT_BURST", 120),

		OTelEnabled:  getEnvBool("HYBRIDGATE_OTEL_ENABLED", false),
		OTelEndpoint: getEnv("HYBRIDGATE_OTEL_ENDPOINT", "localhost:4318"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks config values for obviously invalid settings. An invalid
// percentage pair is not an error here; the split provider falls back to the
// 80/20 default so boot succeeds with an empty environment.
func (c Config) Validate() error {
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("HYBRIDGATE_RATE_LIMIT_RPS must be > 0, got %d", c.RateLimitRPS)
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("HYBRIDGATE_RATE_LIMIT_BURST must be > 0, got %d", c.RateLimitBurst)
	}
	if c.ProviderTimeoutSecs <= 0 {
		return fmt.Errorf("HYBRIDGATE_PROVIDER_TIMEOUT_SECS must be > 0, got %d", c.ProviderTimeoutSecs)
	}
	if c.UsageLogMaxEntries < 0 {
		return fmt.Errorf("HYBRIDGATE_USAGE_LOG_MAX_ENTRIES must be >= 0, got %d", c.UsageLogMaxEntries)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvStringSlice(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		var result []string
		for _, s := range strings.Split(v, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				result = append(result, s)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return def
}
