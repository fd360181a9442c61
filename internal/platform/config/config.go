package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration, read once in main.
type Config struct {
	Server   Server
	Log      Log
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	GitHub   GitHubConfig
	Security SecurityConfig
	Sync     SyncConfig
	// ServiceName names the process in traces and logs.
	ServiceName string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

type Log struct {
	Level  string
	Format string
}

// DatabaseConfig selects Postgres when Host is set; otherwise in-memory stores are used.
type DatabaseConfig struct {
	Host         string
	Port         int
	Username     string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// Enabled reports whether a Postgres host was configured.
func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// DSN renders a lib/pq connection URL.
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// OrgCacheTTL bounds how long organization lookups are served from redis.
	OrgCacheTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type GitHubConfig struct {
	// APIURL overrides the REST base URL (GitHub Enterprise or tests).
	APIURL     string
	GraphQLURL string
	AppID      int64
	PrivateKey string
}

// AppConfigured reports whether GitHub App credentials are available for token refresh.
func (c GitHubConfig) AppConfigured() bool {
	return c.AppID != 0 && c.PrivateKey != ""
}

type SecurityConfig struct {
	AdminAPIToken string
	// TokenEncryptionKey seals organization access tokens at rest when non-empty.
	TokenEncryptionKey string
}

type SyncConfig struct {
	Concurrency int
	Timeout     time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":" + getEnv("PORT", "3000")
	}

	return Config{
		Server: Server{
			Addr:            addr,
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getDuration("REQUEST_TIMEOUT", 30*time.Second),
		},
		Log: Log{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			Host:         os.Getenv("DB_HOST"),
			Port:         getInt("DB_PORT", 5432),
			Username:     getEnv("DB_USERNAME", "postgres"),
			Password:     getEnv("DB_PASSWORD", "password"),
			Database:     getEnv("DB_DATABASE", "contribution_metrics"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns: getInt("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
			OrgCacheTTL:  getDuration("ORG_CACHE_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "contribution-metrics.events"),
		},
		GitHub: GitHubConfig{
			APIURL:     os.Getenv("GITHUB_API_URL"),
			GraphQLURL: os.Getenv("GITHUB_GRAPHQL_URL"),
			AppID:      int64(getInt("GITHUB_APP_ID", 0)),
			PrivateKey: os.Getenv("GITHUB_PRIVATE_KEY"),
		},
		Security: SecurityConfig{
			AdminAPIToken:      os.Getenv("ADMIN_API_TOKEN"),
			TokenEncryptionKey: os.Getenv("TOKEN_ENCRYPTION_KEY"),
		},
		Sync: SyncConfig{
			Concurrency: getInt("SYNC_CONCURRENCY", 8),
			Timeout:     getDuration("SYNC_TIMEOUT", 2*time.Minute),
		},
		ServiceName: getEnv("OTEL_SERVICE_NAME", "contribution-metrics"),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
