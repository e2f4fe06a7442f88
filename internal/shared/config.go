package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration

	OpenAIKey      string
	OpenAIBaseURL  string
	EmbeddingModel string
	OpenAIRPS      float64
	IndexWorkers   int

	MCPSecret        string
	ChatRateLimit    int
	ChatRateWindow   time.Duration
	RateLimitBackend string
	TrustProxy       bool
}

// Load reads the environment, preloading .env when present. Existing variables win over the file.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}

	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/monobook?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,

		OpenAIKey:      env("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  env("OPENAI_BASE_URL", ""),
		EmbeddingModel: env("EMBEDDING_MODEL", "text-embedding-3-small"),
		OpenAIRPS:      atof("OPENAI_RPS", 5),
		IndexWorkers:   atoi("INDEX_WORKERS", 4),

		MCPSecret:        env("MCP_SHARED_SECRET", ""),
		ChatRateLimit:    atoi("CHAT_RATE_LIMIT", 20),
		ChatRateWindow:   time.Duration(atoi("CHAT_RATE_WINDOW_SECONDS", 60)) * time.Second,
		RateLimitBackend: env("RATE_LIMIT_BACKEND", "memory"),
		TrustProxy:       atob("TRUST_PROXY_HEADERS", false),
	}
	if c.OpenAIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is empty; semantic search falls back to listing rooms")
	}
	if c.MCPSecret == "" {
		log.Warn().Msg("MCP_SHARED_SECRET is empty; MCP endpoint is open")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func atof(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func atob(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
