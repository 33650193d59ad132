package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string
	UploadMaxSize  int64
	Debug          bool

	SessionStore string
	SessionTTL   time.Duration
	Redis        RedisConfig

	AI AIConfig

	QuizTokenSecret string
	AIRateLimit     int

	Email EmailConfig
}

// RedisConfig holds the connection settings for the Redis session store
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// AIConfig holds the DeepSeek client settings
type AIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	SkipValidation bool
}

// Enabled reports whether an API key is configured
func (c AIConfig) Enabled() bool {
	return c.APIKey != ""
}

// EmailConfig holds the SES results mailer settings
type EmailConfig struct {
	AWSRegion  string
	FromEmail  string
	FromName   string
	AppBaseURL string
}

// Load reads configuration from environment variables with sensible defaults.
// Values from a .env file in the working directory are loaded first; real
// environment variables take precedence.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   strings.ToLower(getEnv("DB_TYPE", "sqlite")),
		DatabasePath:   getEnv("DB_PATH", "./grammardrill.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		UploadMaxSize:  int64(getEnvAsInt("UPLOAD_MAX_SIZE", 5*1024*1024)), // 5MB
		Debug:          getEnvAsBool("DEBUG", false),

		SessionStore: strings.ToLower(getEnv("SESSION_STORE", "sql")),
		SessionTTL:   time.Duration(getEnvAsInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},

		AI: AIConfig{
			APIKey:         getEnv("DEEPSEEK_API_KEY", ""),
			BaseURL:        strings.TrimRight(getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com"), "/"),
			Model:          getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
			SkipValidation: getEnvAsBool("SKIP_QUIZ_VALIDATION", false),
		},

		QuizTokenSecret: getEnv("QUIZ_TOKEN_SECRET", ""),
		AIRateLimit:     getEnvAsInt("AI_RATE_LIMIT", 10),

		Email: EmailConfig{
			AWSRegion:  getEnv("AWS_REGION", "us-east-1"),
			FromEmail:  getEnv("SES_FROM_EMAIL", ""),
			FromName:   getEnv("SES_FROM_NAME", "Grammar Drill"),
			AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:8080"),
		},
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
