package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names the environment variable holding an explicit config file path
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is not set
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

// EnvFiles are loaded into the process environment, first found wins
var EnvFiles = []string{".env"}

// Config is the complete service configuration
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Storage     StorageConfig     `koanf:"storage"`
	Translation TranslationConfig `koanf:"translation"`
	Cache       CacheConfig       `koanf:"cache"`
	Database    DatabaseConfig    `koanf:"database"`
	Ingest      IngestConfig      `koanf:"ingest"`
	Admin       AdminConfig       `koanf:"admin"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host        string `koanf:"host"`
	Port        int    `koanf:"port" validate:"min=1,max=65535"`
	Environment string `koanf:"environment" validate:"oneof=development production test"`
}

// StorageConfig holds raid store settings
type StorageConfig struct {
	RaidDataDir      string   `koanf:"raid_data_dir" validate:"required"`
	IgnoredNicknames []string `koanf:"ignored_nicknames"`
}

// TranslationConfig holds translation table settings
type TranslationConfig struct {
	Dir      string `koanf:"dir" validate:"required"`
	Language string `koanf:"language" validate:"required"`
}

// CacheConfig holds summary cache settings
type CacheConfig struct {
	TTL time.Duration `koanf:"ttl" validate:"gt=0"`
}

// DatabaseConfig holds the optional Postgres connection used for API keys
type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	Name     string `koanf:"name"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
}

// Enabled reports whether a database connection is configured
func (databaseConfig DatabaseConfig) Enabled() bool {
	return databaseConfig.Host != "" && databaseConfig.Password != ""
}

// IngestConfig holds the token bucket guarding the mod endpoints
type IngestConfig struct {
	RatePerSecond float64 `koanf:"rate_per_second" validate:"gt=0"`
	Burst         int     `koanf:"burst" validate:"min=1"`
}

// AdminConfig holds the optional admin login settings
type AdminConfig struct {
	PasswordHash   string        `koanf:"password_hash"`
	JWTSecret      string        `koanf:"jwt_secret"`
	AccessTokenTTL time.Duration `koanf:"access_token_ttl" validate:"gt=0"`
}

// Enabled reports whether admin endpoints can be served
func (adminConfig AdminConfig) Enabled() bool {
	return adminConfig.PasswordHash != "" && adminConfig.JWTSecret != ""
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
}

// Address returns the listen address of the HTTP server
func (serverConfig ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port)
}

// IsProduction reports whether the service runs in production mode
func (serverConfig ServerConfig) IsProduction() bool {
	return serverConfig.Environment == "production"
}

// defaultConfig returns the built-in defaults
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        5000,
			Environment: "development",
		},
		Storage: StorageConfig{
			RaidDataDir:      "json_raid_data",
			IgnoredNicknames: []string{"handles", "another_ignored_nick"},
		},
		Translation: TranslationConfig{
			Dir:      "translate",
			Language: "pl",
		},
		Cache: CacheConfig{
			TTL: 60 * time.Second,
		},
		Ingest: IngestConfig{
			RatePerSecond: 20,
			Burst:         40,
		},
		Admin: AdminConfig{
			AccessTokenTTL: 15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from three layers, later layers winning:
//  1. Defaults
//  2. Optional YAML config file
//  3. Environment variables (a .env file is loaded into the environment first)
func Load() (*Config, error) {
	loadEnvFile()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks value ranges of the loaded configuration
func (cfg *Config) Validate() error {
	return validator.New().Struct(cfg)
}

// loadEnvFile loads the first .env file found. A missing file is not an error.
func loadEnvFile() {
	for _, path := range EnvFiles {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

// findConfigFile returns the explicit config path or the first default path that exists
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set by env
var sliceConfigPaths = []string{
	"storage.ignored_nicknames",
}

// processSliceFields converts comma-separated string values to slices
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, part := range parts {
			if part = strings.TrimSpace(part); part != "" {
				trimmed = append(trimmed, part)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names to koanf paths
var envMappings = map[string]string{
	"port":                   "server.port",
	"host":                   "server.host",
	"environment":            "server.environment",
	"raid_data_dir":          "storage.raid_data_dir",
	"ignored_nicknames":      "storage.ignored_nicknames",
	"translations_dir":       "translation.dir",
	"default_language":       "translation.language",
	"cache_ttl":              "cache.ttl",
	"db_host":                "database.host",
	"db_port":                "database.port",
	"db_name":                "database.name",
	"db_user":                "database.user",
	"db_password":            "database.password",
	"ingest_rate_per_second": "ingest.rate_per_second",
	"ingest_burst":           "ingest.burst",
	"admin_password_hash":    "admin.password_hash",
	"jwt_secret":             "admin.jwt_secret",
	"admin_access_token_ttl": "admin.access_token_ttl",
	"log_level":              "logging.level",
}

// envTransformFunc maps a known environment variable to its koanf path.
// Unknown variables map to "" and are skipped.
//
// Examples:
//   - PORT -> server.port
//   - RAID_DATA_DIR -> storage.raid_data_dir
//   - JWT_SECRET -> admin.jwt_secret
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
