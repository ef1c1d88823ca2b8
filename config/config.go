// Package config loads the service configuration from the environment
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment is the deployment environment the process runs in
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

func (e Environment) String() string { return string(e) }

// ParseEnvironment accepts the short names and their long forms ("development", "production")
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", s)
}

const (
	DefaultCatalogURL   = "https://raw.githubusercontent.com/shiro46mt/jp-medicine-master-data/main/data/data_catalog.json"
	DefaultDataBaseURL  = "https://raw.githubusercontent.com/shiro46mt/jp-medicine-master-data/main/data/{kind}/{file}"
	DefaultAGListURL    = "https://medical.nikkeibp.co.jp/inc/all/drugdic/ag/index.html"
	DefaultRefreshTimes = "06:00;18:00"
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

	CatalogURL   string
	DataBaseURL  string // URL template, {kind} and {file} are substituted
	AGListURL    string
	CacheDir     string // empty disables the raw-file cache
	HTTPTimeout  time.Duration
	RefreshTimes string // gocron At() spec, e.g. "06:00;18:00"
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	env, err := ParseEnvironment(getEnvWithDefault("ENV", "dev"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}

	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               env,
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB

		CatalogURL:   getEnvWithDefault("CATALOG_URL", DefaultCatalogURL),
		DataBaseURL:  getEnvWithDefault("DATA_BASE_URL", DefaultDataBaseURL),
		AGListURL:    getEnvWithDefault("AG_LIST_URL", DefaultAGListURL),
		CacheDir:     os.Getenv("CACHE_DIR"),
		HTTPTimeout:  time.Duration(getIntEnvWithDefault("HTTP_TIMEOUT_SECONDS", 60)) * time.Second,
		RefreshTimes: getEnvWithDefault("REFRESH_TIMES", DefaultRefreshTimes),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}
	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}
	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}
	if err := validateURL(cfg.CatalogURL); err != nil {
		return fmt.Errorf("invalid CATALOG_URL: %w", err)
	}
	if err := validateDataURL(cfg.DataBaseURL); err != nil {
		return fmt.Errorf("invalid DATA_BASE_URL: %w", err)
	}
	if err := validateURL(cfg.AGListURL); err != nil {
		return fmt.Errorf("invalid AG_LIST_URL: %w", err)
	}
	if err := validateTimeout(cfg.HTTPTimeout); err != nil {
		return fmt.Errorf("invalid HTTP_TIMEOUT_SECONDS: %w", err)
	}
	if _, err := ParseRefreshTimes(cfg.RefreshTimes); err != nil {
		return fmt.Errorf("invalid REFRESH_TIMES: %w", err)
	}

	return nil
}

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

func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}
	if address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}
	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

func validateLogLevel(logLevel string) error {
	switch strings.ToLower(logLevel) {
	case "debug", "info", "warn", "error":
		return nil
	case "":
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}
	return fmt.Errorf("LOG_LEVEL must be one of: [debug info warn error], got: %s", logLevel)
}

func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}
	if weeks > 52 {
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}
	return nil
}

func validateMaxLogFileSize(size int64) error {
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}
	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}
	return nil
}

func validateURL(raw string) error {
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

// validateDataURL requires the {file} placeholder; {kind} is optional for flat layouts.
func validateDataURL(raw string) error {
	if !strings.Contains(raw, "{file}") {
		return fmt.Errorf("must contain the {file} placeholder, got: %s", raw)
	}
	probe := strings.NewReplacer("{kind}", "y", "{file}", "f.csv").Replace(raw)
	return validateURL(probe)
}

func validateTimeout(d time.Duration) error {
	if d < time.Second || d > 10*time.Minute {
		return fmt.Errorf("must be between 1 and 600 seconds, got: %s", d)
	}
	return nil
}

// RefreshTime is one daily wall-clock refresh time.
type RefreshTime struct {
	Hour, Minute int
}

// ParseRefreshTimes parses a gocron At() spec: "HH:MM" entries separated by ';'.
// The result keeps the input order.
func ParseRefreshTimes(spec string) ([]RefreshTime, error) {
	var out []RefreshTime
	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := time.Parse("15:04", part)
		if err != nil {
			return nil, fmt.Errorf("%q is not a HH:MM time", part)
		}
		out = append(out, RefreshTime{Hour: t.Hour(), Minute: t.Minute()})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one HH:MM time is required")
	}
	return out, nil
}

// NextRefresh returns the first refresh time strictly after now, in now's location.
func NextRefresh(now time.Time, times []RefreshTime) time.Time {
	var next time.Time
	for _, rt := range times {
		t := time.Date(now.Year(), now.Month(), now.Day(), rt.Hour, rt.Minute, 0, 0, now.Location())
		if !t.After(now) {
			t = t.AddDate(0, 0, 1)
		}
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}
	return next
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
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
		"CATALOG_URL",
		"DATA_BASE_URL",
		"AG_LIST_URL",
		"CACHE_DIR",
		"HTTP_TIMEOUT_SECONDS",
		"REFRESH_TIMES",
	}
}
