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

// Dataset sources.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Invalid coordinate policies.
const (
	CoordinatePolicyDrop = "drop"
	CoordinatePolicyFail = "fail"
)

// Initial filter selections for new sessions.
const (
	SelectionNone = "none"
	SelectionAll  = "all"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Dataset   DatasetConfig
	Dashboard DashboardConfig
	Sessions  SessionConfig
	Exports   ExportsConfig
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DatasetConfig describes where admission records come from and how bad rows are handled.
type DatasetConfig struct {
	Source             string
	Path               string
	Table              string
	InvalidCoordinates string
	StrictStartup      bool
	LoadTimeout        time.Duration
}

// DashboardConfig governs view defaults and view caching.
type DashboardConfig struct {
	DefaultSelection string
	CacheEnabled     bool
	CacheTTL         time.Duration
	MapCenterLat     float64
	MapCenterLon     float64
	MapZoom          int
}

// SessionConfig controls per-user filter session lifetime.
type SessionConfig struct {
	TTL time.Duration
}

// ExportsConfig toggles table downloads.
type ExportsConfig struct {
	Enabled bool
	Title   string
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
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Dataset = DatasetConfig{
		Source:             oneOf(v.GetString("DATASET_SOURCE"), SourceFile, SourceFile, SourcePostgres),
		Path:               v.GetString("DATASET_PATH"),
		Table:              v.GetString("DATASET_TABLE"),
		InvalidCoordinates: oneOf(v.GetString("DATASET_INVALID_COORDINATES"), CoordinatePolicyDrop, CoordinatePolicyDrop, CoordinatePolicyFail),
		StrictStartup:      v.GetBool("DATASET_STRICT_STARTUP"),
		LoadTimeout:        parseDuration(v.GetString("DATASET_LOAD_TIMEOUT"), 30*time.Second),
	}

	cfg.Dashboard = DashboardConfig{
		DefaultSelection: oneOf(v.GetString("FILTER_DEFAULT_SELECTION"), SelectionNone, SelectionNone, SelectionAll),
		CacheEnabled:     v.GetBool("ENABLE_VIEW_CACHE"),
		CacheTTL:         parseDuration(v.GetString("VIEW_CACHE_TTL"), 10*time.Minute),
		MapCenterLat:     v.GetFloat64("MAP_CENTER_LAT"),
		MapCenterLon:     v.GetFloat64("MAP_CENTER_LON"),
		MapZoom:          v.GetInt("MAP_ZOOM"),
	}

	cfg.Sessions = SessionConfig{
		TTL: parseDuration(v.GetString("SESSION_TTL"), 12*time.Hour),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
		Title:   v.GetString("EXPORT_TITLE"),
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
	v.SetDefault("DB_NAME", "ppdb")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DATASET_SOURCE", SourceFile)
	v.SetDefault("DATASET_PATH", "public/ppdb.json")
	v.SetDefault("DATASET_TABLE", "ppdb_admissions")
	v.SetDefault("DATASET_INVALID_COORDINATES", CoordinatePolicyDrop)
	v.SetDefault("DATASET_STRICT_STARTUP", false)
	v.SetDefault("DATASET_LOAD_TIMEOUT", "30s")

	v.SetDefault("FILTER_DEFAULT_SELECTION", SelectionNone)
	v.SetDefault("ENABLE_VIEW_CACHE", false)
	v.SetDefault("VIEW_CACHE_TTL", "10m")
	v.SetDefault("MAP_CENTER_LAT", -5.14)
	v.SetDefault("MAP_CENTER_LON", 119.42)
	v.SetDefault("MAP_ZOOM", 12)

	v.SetDefault("SESSION_TTL", "12h")

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORT_TITLE", "Data PPDB")
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

// oneOf lower-cases raw and returns it when allowed, otherwise fallback.
func oneOf(raw, fallback string, allowed ...string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for _, candidate := range allowed {
		if raw == candidate {
			return raw
		}
	}
	return fallback
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
