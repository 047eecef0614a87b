package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting, loaded once at startup.
// All values come from the environment; defaults match local development.
type Config struct {
	Env       string
	Port      string
	APIPrefix string

	MongoURI     string
	DatabaseName string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret         string
	JWTRefreshSecret  string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	ResetTokenTTL     time.Duration
	AllowedOrigins    string
	ClientURL         string
	RateLimitWindow   time.Duration
	RateLimitMax      int
	LogLevel          string
	DefaultQueryLimit int
	MaxQueryLimit     int

	EmailSender string // "smtp" or "log"
	EmailFrom   string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	SMTPTimeout time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		Env:       getEnv("APP_ENV", "development"),
		Port:      getEnv("PORT", "8000"),
		APIPrefix: getEnv("API_PREFIX", "/api/v1"),

		MongoURI:     getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DatabaseName: getEnv("DATABASE_NAME", "minest"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret:        getEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", "dev_refresh_secret_change_me"),
		AccessTokenTTL:   time.Duration(getEnvInt("ACCESS_TOKEN_TTL_HOURS", 7*24)) * time.Hour,
		RefreshTokenTTL:  time.Duration(getEnvInt("REFRESH_TOKEN_TTL_HOURS", 30*24)) * time.Hour,
		ResetTokenTTL:    time.Duration(getEnvInt("RESET_TOKEN_TTL_MINUTES", 30)) * time.Minute,

		AllowedOrigins:  getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		ClientURL:       getEnv("CLIENT_URL", "http://localhost:3000"),
		RateLimitWindow: time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 15*60)) * time.Second,
		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 100),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		DefaultQueryLimit: getEnvInt("DEFAULT_READ_QUERY_LIMIT", 10),
		MaxQueryLimit:     getEnvInt("READ_QUERY_MAX_LIMIT", 100),

		EmailSender: getEnv("EMAIL_SENDER", "log"),
		EmailFrom:   getEnv("EMAIL_FROM", "no-reply@minest.app"),
		SMTPHost:    getEnv("SMTP_HOST", "localhost"),
		SMTPPort:    getEnvInt("SMTP_PORT", 587),
		SMTPUser:    os.Getenv("SMTP_USER"),
		SMTPPass:    os.Getenv("SMTP_PASS"),
		SMTPTimeout: time.Duration(getEnvInt("SMTP_TIMEOUT_SECONDS", 10)) * time.Second,
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
