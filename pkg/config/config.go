package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/medicloud/portal/pkg/types"
)

// Config holds all configuration for the portal
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Generative model configuration
	GenAI GenAIConfig `mapstructure:"genai"`

	// JWT configuration
	JWT JWTConfig `mapstructure:"jwt"`

	// Initial doctor account, seeded at startup
	Doctor DoctorConfig `mapstructure:"doctor"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`

	// Monitoring configuration
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
	// MaxUploadBytes bounds the report upload size
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// GenAIConfig holds generative model backend configuration
type GenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	// Endpoint is the generate-from-parts API base URL
	Endpoint string `mapstructure:"endpoint"`
	// Models is the candidate list in preference order, most-preferred first
	Models []string `mapstructure:"models"`
	// TimeoutSeconds bounds each candidate attempt
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	Temperature    float64 `mapstructure:"temperature"`
	// SmokeTest gates candidate acceptance on a cheap probe generation
	SmokeTest bool `mapstructure:"smoke_test"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SecretKey      string `mapstructure:"secret_key"`
	AccessTokenTTL int    `mapstructure:"access_token_ttl"`
	Issuer         string `mapstructure:"issuer"`
}

// DoctorConfig holds the seeded doctor account configuration
type DoctorConfig struct {
	Username        string `mapstructure:"username"`
	InitialPassword string `mapstructure:"initial_password"`
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
	HealthPath  string `mapstructure:"health_path"`
}

// Load loads configuration from environment variables and config files.
// Missing secrets fail Load: the process must not partially initialize.
func Load() (*Config, error) {
	// Best effort .env load for local development
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/medicloud")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideWithEnv(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 120)
	viper.SetDefault("server.idle_timeout", 120)
	viper.SetDefault("server.max_upload_bytes", 16<<20)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "medicloud")
	viper.SetDefault("database.user", "medicloud")
	viper.SetDefault("database.ssl_mode", "require")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 300)

	viper.SetDefault("genai.endpoint", "https://generativelanguage.googleapis.com/v1beta")
	viper.SetDefault("genai.models", []string{"gemini-1.5-flash", "gemini-1.5-pro", "gemini-pro"})
	viper.SetDefault("genai.timeout_seconds", 60)
	viper.SetDefault("genai.temperature", 0.4)
	viper.SetDefault("genai.smoke_test", true)

	viper.SetDefault("jwt.access_token_ttl", 3600)
	viper.SetDefault("jwt.issuer", "medicloud-portal")

	viper.SetDefault("doctor.username", "admin")

	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")
	viper.SetDefault("monitoring.health_path", "/health")

	viper.SetDefault("log_level", "info")
}

// overrideWithEnv overrides configuration with well-known environment variables
func overrideWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if apiKey := os.Getenv("GENAI_API_KEY"); apiKey != "" {
		config.GenAI.APIKey = apiKey
	}

	if jwtSecret := os.Getenv("JWT_SECRET_KEY"); jwtSecret != "" {
		config.JWT.SecretKey = jwtSecret
	}

	if pw := os.Getenv("DOCTOR_INITIAL_PASSWORD"); pw != "" {
		config.Doctor.InitialPassword = pw
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.LogLevel = logLevel
	}
}

// validate validates the configuration
func validate(config *Config) error {
	missing := func(what string) error {
		return &types.PortalError{
			Type:    types.ErrorTypeConfig,
			Code:    types.ErrCodeConfigMissing,
			Message: fmt.Sprintf("%s is required", what),
		}
	}

	if config.GenAI.APIKey == "" {
		return missing("genai api key")
	}

	if config.Database.Password == "" {
		return missing("database password")
	}

	if config.JWT.SecretKey == "" {
		return missing("jwt secret key")
	}

	if config.Doctor.InitialPassword == "" {
		return missing("doctor initial password")
	}

	if len(config.GenAI.Models) == 0 {
		return missing("at least one genai model candidate")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return &types.PortalError{
			Type:    types.ErrorTypeConfig,
			Code:    types.ErrCodeConfigMissing,
			Message: fmt.Sprintf("invalid server port: %d", config.Server.Port),
		}
	}

	return nil
}
