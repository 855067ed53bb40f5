package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrMissingSecret = errors.New("SECRET_KEY is required")

// Config holds application configuration loaded from environment variables.
// Optional integrations stay disabled while their address is empty.
type Config struct {
	AppName     string
	Env         string // development, staging, production
	Port        string
	GinMode     string
	FrontendURL string

	// Tokens
	SecretKey   string
	Algorithm   string
	AccessTTL   time.Duration
	SessionTTL  time.Duration
	SweepPeriod time.Duration // 0 disables the in-process sweep

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Redis
	RedisURL         string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisDialTimeout time.Duration
	RedisRWTimeout   time.Duration

	// Cookies
	CookieDomain string
	CookieSecure bool

	// CORS
	CORSAllowedOrigins string // comma-separated

	// Audit log (Postgres)
	DatabaseURL   string
	DBMaxConns    int32
	DBMinConns    int32
	DBMaxConnLife time.Duration
	MigrationsDir string

	// RabbitMQ
	RabbitMQURL        string
	RabbitMQEmailQueue string

	// Mailgun
	MailgunDomain   string
	MailgunAPIKey   string
	MailgunSender   string
	MailSendEnabled bool

	// Elasticsearch
	ElasticsearchAddrs string // comma-separated
	ElasticsearchUser  string
	ElasticsearchPass  string
	ESUsersIndex       string

	// Google Cloud Storage
	GCSBucket              string
	GCSCredentialsJSONPath string // optional; if empty, Application Default Credentials are used

	// Rate limit for signup, login and the oauth callback
	AuthRateLimit  int
	AuthRateWindow time.Duration

	// HTTP access log toggle (Gin logger)
	HTTPLogEnabled bool
}

const defaultCORSOrigins = "http://localhost:3000,http://localhost:5173,http://127.0.0.1:3000,http://127.0.0.1:5173"

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %v, using default %v", key, err, def)
			return def
		}
		return b
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid int for %s: %v, using default %d", key, err, def)
			return def
		}
		return i
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using default %v", key, err, def)
			return def
		}
		return d
	}
	return def
}

// Load loads configuration from environment variables
func Load() *Config {
	port := getenv("PORT", "8000")
	return &Config{
		AppName:     getenv("APP_NAME", "waveai-auth"),
		Env:         getenv("APP_ENV", "development"),
		Port:        port,
		GinMode:     getenv("GIN_MODE", "release"),
		FrontendURL: strings.TrimRight(getenv("FRONTEND_URL", "http://localhost:5173"), "/"),

		SecretKey:   os.Getenv("SECRET_KEY"),
		Algorithm:   getenv("ALGORITHM", "HS256"),
		AccessTTL:   time.Duration(getint("ACCESS_TOKEN_EXPIRE_HOURS", 24)) * time.Hour,
		SessionTTL:  24 * time.Hour,
		SweepPeriod: getdur("SESSION_SWEEP_INTERVAL", 0),

		GoogleClientID:     getenv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getenv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getenv("GOOGLE_REDIRECT_URL", "http://localhost:"+port+"/api/auth/google/callback"),

		RedisURL:         getenv("REDIS_URL", ""),
		RedisAddr:        getenv("REDIS_HOST", "localhost") + ":" + getenv("REDIS_PORT", "6379"),
		RedisPassword:    getenv("REDIS_PASSWORD", ""),
		RedisDB:          getint("REDIS_DB", 0),
		RedisDialTimeout: getdur("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRWTimeout:   getdur("REDIS_RW_TIMEOUT", 3*time.Second),

		CookieDomain: getenv("COOKIE_DOMAIN", "localhost"),
		CookieSecure: getbool("COOKIE_SECURE", false),

		CORSAllowedOrigins: getenv("CORS_ALLOWED_ORIGINS", defaultCORSOrigins),

		DatabaseURL:   getenv("DATABASE_URL", ""),
		DBMaxConns:    int32(getint("DB_MAX_CONNS", 5)),
		DBMinConns:    int32(getint("DB_MIN_CONNS", 1)),
		DBMaxConnLife: getdur("DB_MAX_CONN_LIFETIME", time.Hour),
		MigrationsDir: getenv("MIGRATIONS_DIR", "db/migrations"),

		RabbitMQURL:        getenv("RABBITMQ_URL", ""),
		RabbitMQEmailQueue: getenv("RABBITMQ_EMAIL_QUEUE", "emails"),

		MailgunDomain:   getenv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey:   getenv("MAILGUN_API_KEY", ""),
		MailgunSender:   getenv("MAILGUN_SENDER", ""),
		MailSendEnabled: getbool("MAIL_SEND_ENABLED", true),

		ElasticsearchAddrs: getenv("ELASTICSEARCH_ADDRS", ""),
		ElasticsearchUser:  getenv("ELASTICSEARCH_USERNAME", ""),
		ElasticsearchPass:  getenv("ELASTICSEARCH_PASSWORD", ""),
		ESUsersIndex:       getenv("ES_USERS_INDEX", "users"),

		GCSBucket:              getenv("GCS_BUCKET", ""),
		GCSCredentialsJSONPath: getenv("GCS_CREDENTIALS_JSON", ""),

		AuthRateLimit:  getint("AUTH_RATE_LIMIT", 20),
		AuthRateWindow: getdur("AUTH_RATE_WINDOW", time.Minute),

		// HTTP access log toggle (default false; enable when needed)
		HTTPLogEnabled: getbool("HTTP_LOG_ENABLED", false),
	}
}

// Validate reports configuration the service cannot start without.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return ErrMissingSecret
	}
	if c.AccessTTL <= 0 {
		return errors.New("ACCESS_TOKEN_EXPIRE_HOURS must be positive")
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			res = append(res, p)
		}
	}
	return res
}

// CORSOrigins returns the allowed origins as slice
func (c *Config) CORSOrigins() []string { return splitList(c.CORSAllowedOrigins) }

// ESAddrs returns Elasticsearch addresses as a slice
func (c *Config) ESAddrs() []string { return splitList(c.ElasticsearchAddrs) }

func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}
