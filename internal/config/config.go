package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig holds settings for the chat server runtime.
type ServerConfig struct {
	ListenAddr       string
	Database         DatabaseConfig
	JWT              JWTConfig
	AllowedOrigins   []string
	HandshakeTimeout time.Duration
	KeepAliveTimeout time.Duration
	WriteTimeout     time.Duration
	ShutdownTimeout  time.Duration
	MaxMessageBytes  int64
	SendQueueSize    int
	HistoryLimit     int
	RateLimit        RateLimitConfig
	LogLevel         string
}

// ClientConfig holds settings for the terminal client.
type ClientConfig struct {
	ServerURL     string
	CommandPrefix rune
}

// DatabaseConfig captures storage configuration. A non-empty URL selects
// PostgreSQL; otherwise the embedded SQLite file at Path is used.
type DatabaseConfig struct {
	URL  string
	Path string
}

// JWTConfig defines token issuance parameters.
type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

// RateLimitConfig bounds how fast a single connection may submit events.
type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

// LoadServerConfig builds the server configuration from environment variables with sensible defaults.
func LoadServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr: envOrDefault("CHITCHAT_LISTEN_ADDR", ":8080"),
		Database: DatabaseConfig{
			URL:  envOrDefault("CHITCHAT_DATABASE_URL", os.Getenv("DATABASE_URL")),
			Path: envOrDefault("CHITCHAT_DB_PATH", "chitchat.db"),
		},
		JWT:              loadJWTConfig(),
		AllowedOrigins:   envList("CHITCHAT_ALLOWED_ORIGINS", nil),
		HandshakeTimeout: envDuration("CHITCHAT_HANDSHAKE_TIMEOUT", 10*time.Second),
		KeepAliveTimeout: envDuration("CHITCHAT_KEEPALIVE_TIMEOUT", 60*time.Second),
		WriteTimeout:     envDuration("CHITCHAT_WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout:  envDuration("CHITCHAT_SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxMessageBytes:  envInt64("CHITCHAT_MAX_MESSAGE_BYTES", 64<<10),
		SendQueueSize:    envInt("CHITCHAT_SEND_QUEUE_SIZE", 64),
		HistoryLimit:     envInt("CHITCHAT_HISTORY_LIMIT", 100),
		RateLimit: RateLimitConfig{
			PerSecond: envFloat("CHITCHAT_RATE_LIMIT_PER_SECOND", 10),
			Burst:     envInt("CHITCHAT_RATE_LIMIT_BURST", 20),
		},
		LogLevel: envOrDefault("CHITCHAT_LOG_LEVEL", "info"),
	}
}

// LoadClientConfig builds the client configuration from environment variables.
func LoadClientConfig() ClientConfig {
	prefix := envOrDefault("CHITCHAT_COMMAND_PREFIX", "/")
	runes := []rune(prefix)
	commandPrefix := '/'
	if len(runes) > 0 {
		commandPrefix = runes[0]
	}
	return ClientConfig{
		ServerURL:     envOrDefault("CHITCHAT_SERVER_URL", "http://localhost:8080"),
		CommandPrefix: commandPrefix,
	}
}

func loadJWTConfig() JWTConfig {
	return JWTConfig{
		Secret:     envOrDefault("CHITCHAT_JWT_SECRET", "replace-me"),
		Issuer:     envOrDefault("CHITCHAT_JWT_ISSUER", "chitchat"),
		Expiration: envDuration("CHITCHAT_JWT_EXPIRATION", 24*time.Hour),
	}
}

func envOrDefault(key, value string) string {
	if env, ok := os.LookupEnv(key); ok {
		return env
	}
	return value
}

func envList(key string, def []string) []string {
	env, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	var values []string
	for _, part := range strings.Split(env, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

func envDuration(key string, def time.Duration) time.Duration {
	if env, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(env); err == nil {
			return parsed
		}
	}
	return def
}

func envInt(key string, def int) int {
	if env, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(env); err == nil {
			return parsed
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if env, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(env, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if env, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(env, 64); err == nil {
			return parsed
		}
	}
	return def
}
