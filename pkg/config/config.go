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

// CURP uniqueness scopes. Campus scope allows the same person to be
// registered independently at different campuses.
const (
	CURPScopeGlobal = "global"
	CURPScopeCampus = "campus"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Cookie   CookieConfig
	CORS     CORSConfig
	Log      LogConfig
	Cache    CacheConfig
	Sheets   SheetsConfig
	Registry RegistryConfig
	Audit    AuditConfig
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
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// CookieConfig controls how the session cookie is emitted.
type CookieConfig struct {
	Name     string
	Domain   string
	Secure   bool
	SameSite string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig tunes the Redis-backed read cache.
type CacheConfig struct {
	Enabled     bool
	CampusTTL   time.Duration
	TransferTTL time.Duration
}

// SheetsConfig controls sheet-music file storage and signed downloads.
type SheetsConfig struct {
	StorageDir       string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// RegistryConfig captures enrolment policy knobs.
type RegistryConfig struct {
	CURPScope string
}

// AuditConfig tunes the background audit-log writer.
type AuditConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
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
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.Cookie = CookieConfig{
		Name:     v.GetString("SESSION_COOKIE_NAME"),
		Domain:   v.GetString("SESSION_COOKIE_DOMAIN"),
		Secure:   v.GetBool("SESSION_COOKIE_SECURE"),
		SameSite: v.GetString("SESSION_COOKIE_SAMESITE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled:     v.GetBool("ENABLE_CACHE"),
		CampusTTL:   parseDuration(v.GetString("CACHE_CAMPUS_TTL"), 10*time.Minute),
		TransferTTL: parseDuration(v.GetString("CACHE_TRANSFER_TTL"), 5*time.Minute),
	}

	maxSheetSize := v.GetInt64("SHEETS_MAX_FILE_SIZE")
	if maxSheetSize <= 0 {
		maxSheetSize = 10 * 1024 * 1024
	}
	cfg.Sheets = SheetsConfig{
		StorageDir:       v.GetString("SHEETS_STORAGE_DIR"),
		SignedURLSecret:  v.GetString("SHEETS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("SHEETS_SIGNED_URL_TTL"), 30*time.Minute),
		MaxFileSizeBytes: maxSheetSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("SHEETS_ALLOWED_MIME_TYPES")),
	}

	scope := strings.ToLower(v.GetString("REGISTRY_CURP_SCOPE"))
	if scope != CURPScopeCampus {
		scope = CURPScopeGlobal
	}
	cfg.Registry = RegistryConfig{CURPScope: scope}

	cfg.Audit = AuditConfig{
		Workers:    v.GetInt("AUDIT_WORKERS"),
		BufferSize: v.GetInt("AUDIT_BUFFER_SIZE"),
		MaxRetries: v.GetInt("AUDIT_MAX_RETRIES"),
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
	v.SetDefault("DB_NAME", "campus_api")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "1h")
	v.SetDefault("JWT_ISSUER", "campus-api")

	v.SetDefault("SESSION_COOKIE_NAME", "campus_session")
	v.SetDefault("SESSION_COOKIE_DOMAIN", "")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("SESSION_COOKIE_SAMESITE", "lax")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_CAMPUS_TTL", "10m")
	v.SetDefault("CACHE_TRANSFER_TTL", "5m")

	v.SetDefault("SHEETS_STORAGE_DIR", "./sheets")
	v.SetDefault("SHEETS_SIGNED_URL_SECRET", "dev_sheets_secret")
	v.SetDefault("SHEETS_SIGNED_URL_TTL", "30m")
	v.SetDefault("SHEETS_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("SHEETS_ALLOWED_MIME_TYPES", "application/pdf,image/png,image/jpeg")

	v.SetDefault("REGISTRY_CURP_SCOPE", CURPScopeGlobal)

	v.SetDefault("AUDIT_WORKERS", 1)
	v.SetDefault("AUDIT_BUFFER_SIZE", 256)
	v.SetDefault("AUDIT_MAX_RETRIES", 3)
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
