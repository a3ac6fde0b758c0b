package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Mail          MailConfig
	Notifications NotificationsConfig
	Availability  AvailabilityConfig
	Invitations   InvitationsConfig
	Reports       ReportsConfig
	Dashboard     DashboardConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MailConfig holds SMTP transport settings for outbound notifications.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NotificationsConfig tunes the async email dispatch queue.
type NotificationsConfig struct {
	Enabled    bool
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// AvailabilityConfig bounds availability queries and caching.
type AvailabilityConfig struct {
	MaxRangeDays int
	CacheEnabled bool
	CacheTTL     time.Duration
}

// InvitationsConfig controls session invitation expiry.
type InvitationsConfig struct {
	DefaultTTL time.Duration
}

// ReportsConfig configures attendance report exports.
type ReportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// DashboardConfig governs dashboard cache tuning.
type DashboardConfig struct {
	CacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Mail = MailConfig{
		Host:     v.GetString("SMTP_HOST"),
		Port:     v.GetInt("SMTP_PORT"),
		Username: v.GetString("SMTP_USERNAME"),
		Password: v.GetString("SMTP_PASSWORD"),
		From:     v.GetString("SMTP_FROM"),
	}

	cfg.Notifications = NotificationsConfig{
		Enabled:    v.GetBool("ENABLE_NOTIFICATIONS"),
		Workers:    v.GetInt("NOTIFICATIONS_WORKERS"),
		BufferSize: v.GetInt("NOTIFICATIONS_BUFFER_SIZE"),
		MaxRetries: v.GetInt("NOTIFICATIONS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFICATIONS_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Availability = AvailabilityConfig{
		MaxRangeDays: v.GetInt("AVAILABILITY_MAX_RANGE_DAYS"),
		CacheEnabled: v.GetBool("AVAILABILITY_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("AVAILABILITY_CACHE_TTL"), 2*time.Minute),
	}

	cfg.Invitations = InvitationsConfig{
		DefaultTTL: parseDuration(v.GetString("INVITATION_DEFAULT_TTL"), 72*time.Hour),
	}

	cfg.Reports = ReportsConfig{
		StorageDir:      v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "advisory_booking")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "no-reply@advisory.local")

	v.SetDefault("ENABLE_NOTIFICATIONS", true)
	v.SetDefault("NOTIFICATIONS_WORKERS", 2)
	v.SetDefault("NOTIFICATIONS_BUFFER_SIZE", 64)
	v.SetDefault("NOTIFICATIONS_MAX_RETRIES", 3)
	v.SetDefault("NOTIFICATIONS_RETRY_DELAY", "5s")

	v.SetDefault("AVAILABILITY_MAX_RANGE_DAYS", 120)
	v.SetDefault("AVAILABILITY_CACHE_ENABLED", false)
	v.SetDefault("AVAILABILITY_CACHE_TTL", "2m")

	v.SetDefault("INVITATION_DEFAULT_TTL", "72h")

	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "24h")

	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
