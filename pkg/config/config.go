package config

import (
	"errors"
	"io/fs"
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
	Preview       PreviewConfig
	Notifications NotificationConfig
	Mail          MailConfig
	Exports       ExportsConfig
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
	// LockTimeout bounds how long an allocation waits on a contended sequence row.
	LockTimeout time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PreviewConfig tunes caching of organisational option lists used by previews.
type PreviewConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// NotificationConfig shapes in-app notifications emitted on acceptance.
type NotificationConfig struct {
	LinkTemplate  string
	QueueWorkers  int
	QueueRetries  int
	RetryInterval time.Duration
}

// MailConfig configures the optional SMTP copy of notifications.
type MailConfig struct {
	Enabled       bool
	Host          string
	Port          int
	User          string
	Password      string
	From          string
	SkipTLSVerify bool
}

// ExportsConfig controls RIPE register exports.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	RetentionTTL    time.Duration
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
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
		LockTimeout:  parseDuration(v.GetString("DB_LOCK_TIMEOUT"), 5*time.Second),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Preview = PreviewConfig{
		CacheEnabled: v.GetBool("PREVIEW_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("PREVIEW_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Notifications = NotificationConfig{
		LinkTemplate:  v.GetString("NOTIFICATION_LINK_TEMPLATE"),
		QueueWorkers:  v.GetInt("NOTIFICATION_QUEUE_WORKERS"),
		QueueRetries:  v.GetInt("NOTIFICATION_QUEUE_RETRIES"),
		RetryInterval: parseDuration(v.GetString("NOTIFICATION_RETRY_INTERVAL"), 30*time.Second),
	}

	cfg.Mail = MailConfig{
		Enabled:       v.GetBool("SMTP_ENABLED"),
		Host:          v.GetString("SMTP_HOST"),
		Port:          v.GetInt("SMTP_PORT"),
		User:          v.GetString("SMTP_USER"),
		Password:      v.GetString("SMTP_PASS"),
		From:          v.GetString("SMTP_FROM"),
		SkipTLSVerify: v.GetBool("SMTP_SKIP_TLS_VERIFY"),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 30*time.Minute),
		RetentionTTL:    parseDuration(v.GetString("EXPORTS_RETENTION_TTL"), 24*time.Hour),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "ripe_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_LOCK_TIMEOUT", "5s")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "ripe-portal")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PREVIEW_CACHE_ENABLED", true)
	v.SetDefault("PREVIEW_CACHE_TTL", "10m")

	v.SetDefault("NOTIFICATION_LINK_TEMPLATE", "/researcher/submissions/%d")
	v.SetDefault("NOTIFICATION_QUEUE_WORKERS", 2)
	v.SetDefault("NOTIFICATION_QUEUE_RETRIES", 3)
	v.SetDefault("NOTIFICATION_RETRY_INTERVAL", "30s")

	v.SetDefault("SMTP_ENABLED", false)
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("SMTP_FROM", "")
	v.SetDefault("SMTP_SKIP_TLS_VERIFY", false)

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "30m")
	v.SetDefault("EXPORTS_RETENTION_TTL", "24h")
}

// viper reports a missing explicit config file as a path error, not ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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
