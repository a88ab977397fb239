package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"caseflow.dev/caseflowlearn/pkg/database"
	"caseflow.dev/caseflowlearn/pkg/storage"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins []string
	FrontendURL    string
	LogLevel       string
	SentryDSN      string

	Database database.PostgresConfig
	RedisURL string

	JWTSecret string
	JWTTTL    time.Duration

	MeiliSearchHost string
	MeiliMasterKey  string

	Cloudinary storage.CloudinaryConfig

	GoogleClientID       string
	GoogleClientSecret   string
	GoogleRedirectURL    string
	GoogleAllowedDomains []string

	RateLimitSubmit   time.Duration
	ReferenceCacheTTL time.Duration
	MaxUploadBytes    int64
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func Load() (*Config, error) {
	// .env is optional; production injects real env vars
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SentryDSN:      os.Getenv("SENTRY_DSN"),

		Database: database.PostgresConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASS"),
			Name:     getEnv("DB_NAME", "caseflow"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		RedisURL: os.Getenv("REDIS_URL"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		MeiliSearchHost: os.Getenv("MEILISEARCH_HOST"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		Cloudinary: storage.CloudinaryConfig{
			CloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:       os.Getenv("CLOUDINARY_API_KEY"),
			APISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
			UploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "caseflow"),
		},

		GoogleClientID:       os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:   os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:    os.Getenv("GOOGLE_REDIRECT_URL"),
		GoogleAllowedDomains: splitList(os.Getenv("GOOGLE_ALLOWED_DOMAINS")),
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET is required when APP_ENV=%s", cfg.AppEnv)
		}
		cfg.JWTSecret = "change-me"
	}

	var err error
	cfg.JWTTTL, err = parseDuration(getEnv("JWT_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	cfg.RateLimitSubmit, err = parseDuration(getEnv("RATE_LIMIT_SUBMIT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SUBMIT: %w", err)
	}
	cfg.ReferenceCacheTTL, err = parseDuration(getEnv("REFERENCE_CACHE_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFERENCE_CACHE_TTL: %w", err)
	}

	maxMB, err := strconv.Atoi(getEnv("MAX_UPLOAD_MB", "10"))
	if err != nil || maxMB <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %q", os.Getenv("MAX_UPLOAD_MB"))
	}
	cfg.MaxUploadBytes = int64(maxMB) << 20

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
