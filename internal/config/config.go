package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenPort      string        // ex: ":8090"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)
	LogFile   string // optional path for a rotated log file

	SettingsFile string // path to the user-editable sync settings yaml

	// Remote document store
	GithubToken      string        // bearer credential from the external OAuth flow (optional at boot)
	GistAPIURL       string        // ex: "https://api.github.com"
	HTTPTimeout      time.Duration // per-request timeout against the store
	MaxAttempts      int           // retry budget for transient failures
	RateLimitMaxWait time.Duration // longest proactive rate-limit wait before aborting

	// Redis (local persistence)
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // dial timeout (ex: 5s)
	RedisRT             time.Duration // read timeout (ex: 3s)
	RedisWT             time.Duration // write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between connect retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout per ping attempt (ex: 5s)
	RedisPoolSize       int           // connection pool size
	RedisConnectTimeout time.Duration // total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // initial wait between retries, grows exponentially
}

func Load() *Config {
	// Best effort: a missing .env just means everything comes from the
	// real environment.
	_ = godotenv.Load()

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("MARKSTACK_LISTEN_PORT", "127.0.0.1:8090"),
		ShutdownTimeout: mustDuration("MARKSTACK_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("MARKSTACK_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MARKSTACK_PRETTY_LOG", true),
		LogFile:   getenv("MARKSTACK_LOG_FILE", ""),

		// Sync settings file
		SettingsFile: getenv("MARKSTACK_SETTINGS_FILE", "settings.yaml"),

		// Remote store
		GithubToken:      getenv("MARKSTACK_GITHUB_TOKEN", ""),
		GistAPIURL:       getenv("MARKSTACK_GIST_API_URL", "https://api.github.com"),
		HTTPTimeout:      mustDuration("MARKSTACK_HTTP_TIMEOUT", 15*time.Second),
		MaxAttempts:      getenvInt("MARKSTACK_MAX_ATTEMPTS", 3),
		RateLimitMaxWait: mustDuration("MARKSTACK_RATELIMIT_MAX_WAIT", 2*time.Minute),

		// Redis settings
		RedisAddr:           getenv("MARKSTACK_REDIS_ADDR", "localhost:6379"),
		RedisUser:           getenv("MARKSTACK_REDIS_USERNAME", ""),
		RedisPassword:       getenv("MARKSTACK_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("MARKSTACK_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
