// Package config loads and validates the dosing API configuration from
// environment variables (optionally seeded from a .env file).
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment names the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvTest        Environment = "test"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
)

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes
	MaxHeaderSize     int64 // Maximum header size in bytes

	CuratedCatalogPath   string
	ReferenceCatalogPath string // .db/.sqlite via bun, .csv otherwise
	IndicationsPath      string
	SafetyDir            string
	BrandCachePath       string
	ModelArtifactPath    string
	CatalogReloadAt      string // gocron "HH:MM" list separated by ';'

	RxNormBaseURL string
	RxNormTimeout time.Duration
	RxNormRate    float64 // outbound requests per second
}

// LoadDotEnv reads a .env file when present; a missing file is not an error
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	dataDir := getEnvWithDefault("DATA_DIR", "files")

	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               Environment(strings.ToLower(getEnvWithDefault("ENV", string(EnvDevelopment)))),
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 65536),      // 64KB default
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),     // 1MB default

		CuratedCatalogPath:   getEnvWithDefault("CURATED_CATALOG_PATH", filepath.Join(dataDir, "otc_drugs.tsv")),
		ReferenceCatalogPath: getEnvWithDefault("REFERENCE_CATALOG_PATH", filepath.Join(dataDir, "chembl_drug_database.csv")),
		IndicationsPath:      getEnvWithDefault("INDICATIONS_PATH", filepath.Join(dataDir, "drug_indications.tsv")),
		SafetyDir:            getEnvWithDefault("SAFETY_DIR", filepath.Join(dataDir, "safety")),
		BrandCachePath:       getEnvWithDefault("BRAND_CACHE_PATH", filepath.Join(dataDir, "brand_cache.json")),
		ModelArtifactPath:    getEnvWithDefault("MODEL_ARTIFACT_PATH", filepath.Join(dataDir, "model.yaml")),
		CatalogReloadAt:      getEnvWithDefault("CATALOG_RELOAD_AT", "06:00"),

		RxNormBaseURL: getEnvWithDefault("RXNORM_BASE_URL", "https://rxnav.nlm.nih.gov/REST"),
		RxNormTimeout: getDurationEnvWithDefault("RXNORM_TIMEOUT", 4*time.Second),
		RxNormRate:    getFloatEnvWithDefault("RXNORM_RATE", 5),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}
	if err := validateEnv(cfg.Env); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}
	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}
	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}
	if cfg.LogRetentionWeeks <= 0 || cfg.LogRetentionWeeks > 52 {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: must be between 1 and 52, got: %d", cfg.LogRetentionWeeks)
	}
	if cfg.MaxLogFileSize < 1024*1024 || cfg.MaxLogFileSize > 1024*1024*1024 {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: must be between 1MB and 1GB, got: %d bytes", cfg.MaxLogFileSize)
	}
	if strings.TrimSpace(cfg.CuratedCatalogPath) == "" {
		return fmt.Errorf("CURATED_CATALOG_PATH cannot be empty")
	}
	if strings.TrimSpace(cfg.ModelArtifactPath) == "" {
		return fmt.Errorf("MODEL_ARTIFACT_PATH cannot be empty")
	}
	if err := validateReloadTimes(cfg.CatalogReloadAt); err != nil {
		return fmt.Errorf("invalid CATALOG_RELOAD_AT: %w", err)
	}
	if err := validateBaseURL(cfg.RxNormBaseURL); err != nil {
		return fmt.Errorf("invalid RXNORM_BASE_URL: %w", err)
	}
	// The terminology lookup sits on the request path; keep it short
	if cfg.RxNormTimeout <= 0 || cfg.RxNormTimeout > 10*time.Second {
		return fmt.Errorf("invalid RXNORM_TIMEOUT: must be between 0 and 10s, got: %s", cfg.RxNormTimeout)
	}
	if cfg.RxNormRate <= 0 {
		return fmt.Errorf("invalid RXNORM_RATE: must be positive, got: %v", cfg.RxNormRate)
	}
	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}
	if address == "localhost" || address == "0.0.0.0" {
		return nil
	}
	if ip := net.ParseIP(address); ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}
	return nil
}

// validateEnv validates the ENV environment variable
func validateEnv(env Environment) error {
	switch env {
	case EnvDevelopment, EnvTest, EnvStaging, EnvProduction:
		return nil
	}
	return fmt.Errorf("ENV must be one of: [dev test staging prod], got: %s", env)
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	switch strings.ToLower(logLevel) {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("LOG_LEVEL must be one of: [debug info warn error], got: %s", logLevel)
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}
	if size > 100*1024*1024 {
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}
	return nil
}

var reloadTimeRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// validateReloadTimes checks a gocron At() expression such as "06:00;18:00"
func validateReloadTimes(at string) error {
	if at == "" {
		return fmt.Errorf("cannot be empty")
	}
	for _, part := range strings.Split(at, ";") {
		if !reloadTimeRegex.MatchString(part) {
			return fmt.Errorf("%q is not a HH:MM time", part)
		}
	}
	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got: %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	return nil
}

// IsDev reports whether the server runs in development mode
func (c *Config) IsDev() bool {
	return c.Env == EnvDevelopment
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnvWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"DATA_DIR",
		"CURATED_CATALOG_PATH",
		"REFERENCE_CATALOG_PATH",
		"INDICATIONS_PATH",
		"SAFETY_DIR",
		"BRAND_CACHE_PATH",
		"MODEL_ARTIFACT_PATH",
		"CATALOG_RELOAD_AT",
		"RXNORM_BASE_URL",
		"RXNORM_TIMEOUT",
		"RXNORM_RATE",
	}
}
