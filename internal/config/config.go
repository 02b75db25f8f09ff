package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	LogLevel string
	LogFile  string

	DatabaseURL string
	NatsURL     string
	NatsToken   string
	RedisURL    string

	LLMProvider   string
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	ToughTongueToken      string
	ToughTongueBaseURL    string
	ToughTongueScenarioID string
	ScenarioCacheTTL      time.Duration

	JWTSecret          string
	AnalyzeRequireAuth bool
	AnalyzeRateLimit   int
	CORSOrigins        []string

	SlackBotToken        string
	SlackFeedbackChannel string
	SlackReactionSubject string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; real env vars win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:     envInt("HAVEN_PORT", 8760),
		LogLevel: envStr("LOG_LEVEL", "info"),
		LogFile:  envStr("LOG_FILE", ""),

		DatabaseURL: envStr("DATABASE_URL", ""),
		NatsURL:     envStr("NATS_URL", ""),
		NatsToken:   envStr("NATS_TOKEN", ""),
		RedisURL:    envStr("REDIS_URL", ""),

		LLMProvider:   envStr("LLM_PROVIDER", "gemini"),
		GeminiAPIKey:  envStr("GEMINI_API_KEY", ""),
		GeminiModel:   envStr("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIAPIKey:  envStr("OPENAI_API_KEY", ""),
		OpenAIModel:   envStr("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: envStr("OPENAI_BASE_URL", ""),

		ToughTongueToken:      envStr("TOUGHTONGUE_API_TOKEN", ""),
		ToughTongueBaseURL:    envStr("TOUGHTONGUE_BASE_URL", "https://api.toughtongueai.com/api/public"),
		ToughTongueScenarioID: envStr("TOUGHTONGUE_SCENARIO_ID", "681df5ff4e0a1c83aae411ec"),
		ScenarioCacheTTL:      envDuration("SCENARIO_CACHE_TTL", 10*time.Minute),

		JWTSecret:          envStr("JWT_SECRET", ""),
		AnalyzeRequireAuth: envBool("ANALYZE_REQUIRE_AUTH", false),
		AnalyzeRateLimit:   envInt("ANALYZE_RATE_LIMIT", 20),
		CORSOrigins:        envList("CORS_ORIGINS", []string{"http://localhost:3000"}),

		SlackBotToken:        envStr("SLACK_BOT_TOKEN", ""),
		SlackFeedbackChannel: envStr("SLACK_FEEDBACK_CHANNEL", ""),
		SlackReactionSubject: envStr("SLACK_REACTION_SUBJECT", "swarm.slack.reaction"),
	}
}

// Validate reports every missing or malformed required setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 {
		errs = append(errs, fmt.Errorf("HAVEN_PORT must be > 0"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DATABASE_URL is required"))
	}
	switch c.LLMProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, fmt.Errorf("GEMINI_API_KEY is required for provider gemini"))
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, fmt.Errorf("OPENAI_API_KEY is required for provider openai"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}
	if c.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("JWT_SECRET is required"))
	}
	if c.AnalyzeRateLimit < 0 {
		errs = append(errs, fmt.Errorf("ANALYZE_RATE_LIMIT must be >= 0"))
	}
	return errors.Join(errs...)
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
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
