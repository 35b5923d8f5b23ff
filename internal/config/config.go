// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "change-me-in-production"

type Config struct {
	Environment string
	Version     string
	Server      ServerConfig
	Database    DatabaseConfig
	Email       EmailConfig
	Inbox       InboxConfig
	AI          AIConfig
	AWS         AWSConfig
	Auth        AuthConfig
	CORS        CORSConfig
	RateLimit   RateLimitConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

// InboxConfig drives the IMAP poller. Polling stays off until both
// credentials are present.
type InboxConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	Mailbox            string
	InsecureSkipVerify bool
	PollInterval       time.Duration
	LookbackDays       int
	FetchLimit         int
}

type AIConfig struct {
	Provider      string
	GeminiAPIKey  string
	GeminiModel   string
	OllamaBaseURL string
	OllamaModel   string
	Timeout       time.Duration
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	RawEmailDir     string
}

type AuthConfig struct {
	Enabled   bool
	JWTSecret string
	TTLHours  int
}

type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig sets the per-client token buckets. AIPerMinute applies to
// the routes that call the language model.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	AIPerMinute       float64
	AIBurst           int
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	gmailUser := os.Getenv("GMAIL_USER")
	gmailPassword := os.Getenv("GMAIL_APP_PASSWORD")
	// Without SMTP_HOST or a Gmail account there is no relay to deliver through.
	smtpHost := ""
	if gmailUser != "" {
		smtpHost = "smtp.gmail.com"
	}

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		Server: ServerConfig{
			Port:         getEnv("PORT", getEnv("SERVER_PORT", "5000")),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 120),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "rfp_management"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			SQLitePath:   getEnv("DB_SQLITE_PATH", "rfp.db"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", smtpHost),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", gmailUser),
			SMTPPassword: getEnv("SMTP_PASSWORD", gmailPassword),
			FromEmail:    getEnv("FROM_EMAIL", gmailUser),
			FromName:     getEnv("FROM_NAME", "Procurement Team"),
		},
		Inbox: InboxConfig{
			Host:               getEnv("IMAP_HOST", "imap.gmail.com"),
			Port:               getEnvAsInt("IMAP_PORT", 993),
			Username:           getEnv("IMAP_USERNAME", gmailUser),
			Password:           getEnv("IMAP_PASSWORD", gmailPassword),
			Mailbox:            getEnv("IMAP_MAILBOX", "INBOX"),
			InsecureSkipVerify: getEnvAsBool("IMAP_INSECURE_SKIP_VERIFY", false),
			PollInterval:       getEnvAsMillisOrDuration("EMAIL_POLL_INTERVAL", time.Minute),
			LookbackDays:       getEnvAsInt("EMAIL_LOOKBACK_DAYS", 3),
			FetchLimit:         getEnvAsInt("EMAIL_FETCH_LIMIT", 50),
		},
		AI: AIConfig{
			Provider:      strings.ToLower(getEnv("AI_PROVIDER", "gemini")),
			GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash-lite"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:   getEnv("OLLAMA_MODEL", "llama3.1"),
			Timeout:       getEnvAsMillisOrDuration("AI_TIMEOUT", 90*time.Second),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", ""),
			RawEmailDir:     getEnv("RAW_EMAIL_DIR", ""),
		},
		Auth: AuthConfig{
			Enabled:   getEnvAsBool("AUTH_ENABLED", false),
			JWTSecret: getEnv("JWT_SECRET", defaultJWTSecret),
			TTLHours:  getEnvAsInt("JWT_TTL_HOURS", 24),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ORIGIN", []string{"http://localhost:5173"}),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 10),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 20),
			AIPerMinute:       getEnvAsFloat("AI_RATE_LIMIT_PER_MINUTE", 10),
			AIBurst:           getEnvAsInt("AI_RATE_LIMIT_BURST", 5),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", ""),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.JWTSecret == defaultJWTSecret && c.IsProduction() {
		return fmt.Errorf("JWT secret must be changed in production")
	}

	if c.Database.Driver == "postgres" && c.Database.Password == "" && c.IsProduction() {
		return fmt.Errorf("database password is required in production")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.AI.Provider {
	case "gemini", "ollama":
	default:
		return fmt.Errorf("unsupported AI provider %q", c.AI.Provider)
	}

	if c.Inbox.PollInterval <= 0 {
		return fmt.Errorf("email poll interval must be positive")
	}

	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.AIPerMinute <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// PollingEnabled reports whether IMAP credentials are configured.
func (c *Config) PollingEnabled() bool {
	return c.Inbox.Username != "" && c.Inbox.Password != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

// getEnvAsMillisOrDuration accepts plain milliseconds ("60000") or a Go
// duration ("1m").
func getEnvAsMillisOrDuration(key string, defaultValue time.Duration) time.Duration {
	return parseMillisOrDuration(os.Getenv(key), defaultValue)
}

func parseMillisOrDuration(value string, defaultValue time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultValue
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}
