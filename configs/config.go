package configs

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// FileConfig defines the structure loaded from the YAML configuration file.
// Environment variables override anything set here.
type FileConfig struct {
	Auth struct {
		UserPoolID     string   `yaml:"user_pool_id"`
		Issuer         string   `yaml:"issuer"`
		RequiredScopes []string `yaml:"required_scopes"`
	} `yaml:"auth"`
	AWS struct {
		Region string `yaml:"region"`
	} `yaml:"aws"`
}

// Config holds the final application configuration, merged from file and
// environment variables. Fields are loaded from environment variables with
// the prefix "AMPGATE_", potentially overriding file settings.
type Config struct {
	// Config File Path (loaded first from env). Empty means env/defaults only.
	ConfigFilePath string `envconfig:"CONFIG_FILE"`

	ListenAddr               string        `envconfig:"LISTEN_ADDR" default:":8080"`
	HTTPClientTimeout        time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"30s"`
	ShutdownTimeout          time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	ServerReadTimeout        time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"5s"`
	ServerWriteTimeout       time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ServerIdleTimeout        time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	OtelExporterOtlpEndpoint string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool          `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	LogLevel                 string        `envconfig:"LOG_LEVEL" default:"info"`

	// AWS / Amazon Managed Prometheus. The default region is applied after
	// the file merge; a default tag here would override file settings on the
	// second env pass.
	AWSRegion string `envconfig:"AWS_REGION"`

	// Cognito authorization
	UserPoolID          string        `envconfig:"USER_POOL_ID"`
	CognitoIssuer       string        `envconfig:"COGNITO_ISSUER"`
	RequiredScopes      []string      `envconfig:"REQUIRED_SCOPES"`
	JWKSRefreshInterval time.Duration `envconfig:"JWKS_REFRESH_INTERVAL" default:"1h"`
}

// ParsedLogLevel returns the slog.Level based on the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// Issuer returns the expected token issuer, derived from region and user
// pool when not set explicitly.
func (c *Config) Issuer() string {
	if c.CognitoIssuer != "" {
		return c.CognitoIssuer
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.AWSRegion, c.UserPoolID)
}

// Validate checks the fields no default can supply.
func (c *Config) Validate() error {
	if c.UserPoolID == "" {
		return fmt.Errorf("user pool ID is required (AMPGATE_USER_POOL_ID)")
	}
	return nil
}

// Load loads configuration first from environment variables (to get the
// file path), then from the specified YAML file, and finally merges/overrides
// with environment variables again.
func Load() (*Config, error) {
	var initialCfg Config
	if err := envconfig.Process("ampgate", &initialCfg); err != nil {
		return nil, fmt.Errorf("failed to process initial environment variables: %w", err)
	}

	fileCfg := FileConfig{}
	if initialCfg.ConfigFilePath != "" {
		yamlFile, err := os.ReadFile(initialCfg.ConfigFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", initialCfg.ConfigFilePath, err)
		}
		if err := yaml.Unmarshal(yamlFile, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", initialCfg.ConfigFilePath, err)
		}
		slog.Info("Loaded configuration from file.", "path", initialCfg.ConfigFilePath)
	}

	finalCfg := initialCfg
	if fileCfg.Auth.UserPoolID != "" {
		finalCfg.UserPoolID = fileCfg.Auth.UserPoolID
	}
	if fileCfg.Auth.Issuer != "" {
		finalCfg.CognitoIssuer = fileCfg.Auth.Issuer
	}
	if len(fileCfg.Auth.RequiredScopes) > 0 {
		finalCfg.RequiredScopes = fileCfg.Auth.RequiredScopes
	}
	if fileCfg.AWS.Region != "" {
		finalCfg.AWSRegion = fileCfg.AWS.Region
	}

	// Process environment variables AGAIN to allow overrides over file settings.
	if err := envconfig.Process("ampgate", &finalCfg); err != nil {
		return nil, fmt.Errorf("failed to process overriding environment variables: %w", err)
	}

	if finalCfg.AWSRegion == "" {
		finalCfg.AWSRegion = "us-west-2"
	}

	return &finalCfg, nil
}
