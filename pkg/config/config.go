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

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Media     MediaConfig
	Registry  RegistryConfig
	Saf       SafConfig
	Converter ConverterConfig
	DSpace    DSpaceConfig
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
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MediaConfig locates uploaded thesis artifacts on disk.
type MediaConfig struct {
	StorageDir       string
	MaxFileSizeBytes int64
}

// RegistryConfig carries the validation parameters that were a key-value
// table in the legacy system.
type RegistryConfig struct {
	DNILength       int
	RequireTurnitin bool
}

// SafConfig governs batch export output and download tokens.
type SafConfig struct {
	OutputRoot      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	WorkerRetries   int
	ProgressTTL     time.Duration
	// OutputRetention prunes generated batch output older than this age.
	// Zero disables the sweep.
	OutputRetention time.Duration
}

// ConverterConfig tunes the external DOCX to PDF conversion.
type ConverterConfig struct {
	SofficePath string
	Timeout     time.Duration
}

// DSpaceConfig parameterizes the generated import scripts and link resolution.
type DSpaceConfig struct {
	BinPath       string
	ImportEperson string
	BaseURL       string
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
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxUpload := v.GetInt64("MEDIA_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 50 * 1024 * 1024
	}
	cfg.Media = MediaConfig{
		StorageDir:       v.GetString("MEDIA_STORAGE_DIR"),
		MaxFileSizeBytes: maxUpload,
	}

	cfg.Registry = RegistryConfig{
		DNILength:       v.GetInt("REGISTRY_DNI_LENGTH"),
		RequireTurnitin: v.GetBool("REGISTRY_REQUIRE_TURNITIN"),
	}

	cfg.Saf = SafConfig{
		OutputRoot:      v.GetString("SAF_OUTPUT_ROOT"),
		SignedURLSecret: v.GetString("SAF_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("SAF_SIGNED_URL_TTL"), 24*time.Hour),
		WorkerRetries:   v.GetInt("SAF_WORKER_RETRIES"),
		ProgressTTL:     parseDuration(v.GetString("SAF_PROGRESS_TTL"), time.Hour),
		OutputRetention: parseDuration(v.GetString("SAF_OUTPUT_RETENTION"), 0),
	}

	cfg.Converter = ConverterConfig{
		SofficePath: v.GetString("SOFFICE_PATH"),
		Timeout:     parseDuration(v.GetString("SOFFICE_TIMEOUT"), 3*time.Minute),
	}

	cfg.DSpace = DSpaceConfig{
		BinPath:       v.GetString("DSPACE_BIN_PATH"),
		ImportEperson: v.GetString("DSPACE_IMPORT_EPERSON"),
		BaseURL:       v.GetString("DSPACE_BASE_URL"),
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
	v.SetDefault("DB_NAME", "saf_platform")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MEDIA_STORAGE_DIR", "./media")
	v.SetDefault("MEDIA_MAX_FILE_SIZE", 50*1024*1024)

	v.SetDefault("REGISTRY_DNI_LENGTH", 8)
	v.SetDefault("REGISTRY_REQUIRE_TURNITIN", true)

	v.SetDefault("SAF_OUTPUT_ROOT", "./saf_output")
	v.SetDefault("SAF_SIGNED_URL_SECRET", "dev_secret")
	v.SetDefault("SAF_SIGNED_URL_TTL", "24h")
	v.SetDefault("SAF_WORKER_RETRIES", 1)
	v.SetDefault("SAF_PROGRESS_TTL", "1h")
	v.SetDefault("SAF_OUTPUT_RETENTION", "0")

	v.SetDefault("SOFFICE_PATH", "")
	v.SetDefault("SOFFICE_TIMEOUT", "3m")

	v.SetDefault("DSPACE_BIN_PATH", `C:\dspace\bin`)
	v.SetDefault("DSPACE_IMPORT_EPERSON", "repositorio@autonomadeica.edu.pe")
	v.SetDefault("DSPACE_BASE_URL", "https://repositorio.autonomadeica.edu.pe")
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
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
