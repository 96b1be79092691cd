package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Data     DataConfig     `toml:"data"`
	Logger   LoggerConfig   `toml:"logger"`
	Security SecurityConfig `toml:"security"`
	Backend  BackendConfig  `toml:"backend"`
	Report   ReportConfig   `toml:"report"`
}

type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	IdleTimeout     Duration `toml:"idle_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	MaxBodyBytes    int64    `toml:"max_body_bytes"`
}

// DataConfig names an optional day-report JSON file loaded at startup.
type DataConfig struct {
	ReportsFile string `toml:"reports_file"`
}

type LoggerConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `toml:"enable_rate_limit"`
	RateLimitRPS    int      `toml:"rate_limit_rps"`
	RateLimitBurst  int      `toml:"rate_limit_burst"`
	AllowedOrigins  []string `toml:"allowed_origins"`
	TrustedProxies  []string `toml:"trusted_proxies"`
}

// BackendConfig points at the POS backend that serves day reports.
type BackendConfig struct {
	BaseURL        string   `toml:"base_url"`
	SessionCookie  string   `toml:"session_cookie"`
	Timeout        Duration `toml:"timeout"`
	RateLimitRPS   float64  `toml:"rate_limit_rps"`
	MaxConcurrency int      `toml:"max_concurrency"`
}

type ReportConfig struct {
	Timezone string `toml:"timezone"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8084,
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			IdleTimeout:     Duration(60 * time.Second),
			ShutdownTimeout: Duration(30 * time.Second),
			MaxBodyBytes:    10 << 20,
		},
		Logger: LoggerConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Security: SecurityConfig{
			EnableRateLimit: true,
			RateLimitRPS:    100,
			RateLimitBurst:  10,
			AllowedOrigins:  []string{"http://localhost:8084"},
			TrustedProxies:  []string{"127.0.0.1"},
		},
		Backend: BackendConfig{
			SessionCookie:  "token",
			Timeout:        Duration(15 * time.Second),
			RateLimitRPS:   5,
			MaxConcurrency: 4,
		},
		Report: ReportConfig{
			Timezone: "Local",
		},
	}
}

// Load builds the configuration from, in increasing precedence: built-in
// defaults, the TOML file named by CONFIG_FILE, a .env file, and the process
// environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnvString("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("SERVER_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.MaxBodyBytes = int64(getEnvInt("SERVER_MAX_BODY_BYTES", int(c.Server.MaxBodyBytes)))

	c.Data.ReportsFile = getEnvString("REPORTS_FILE", c.Data.ReportsFile)

	c.Logger.Level = getEnvString("LOG_LEVEL", c.Logger.Level)
	c.Logger.Format = getEnvString("LOG_FORMAT", c.Logger.Format)
	c.Logger.File = getEnvString("LOG_FILE", c.Logger.File)
	c.Logger.MaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", c.Logger.MaxSizeMB)
	c.Logger.MaxBackups = getEnvInt("LOG_MAX_BACKUPS", c.Logger.MaxBackups)
	c.Logger.MaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", c.Logger.MaxAgeDays)

	c.Security.EnableRateLimit = getEnvBool("SECURITY_RATE_LIMIT_ENABLED", c.Security.EnableRateLimit)
	c.Security.RateLimitRPS = getEnvInt("SECURITY_RATE_LIMIT_RPS", c.Security.RateLimitRPS)
	c.Security.RateLimitBurst = getEnvInt("SECURITY_RATE_LIMIT_BURST", c.Security.RateLimitBurst)
	c.Security.AllowedOrigins = getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", c.Security.AllowedOrigins)
	c.Security.TrustedProxies = getEnvStringSlice("SECURITY_TRUSTED_PROXIES", c.Security.TrustedProxies)

	c.Backend.BaseURL = getEnvString("POS_BASE_URL", c.Backend.BaseURL)
	c.Backend.SessionCookie = getEnvString("POS_SESSION_COOKIE", c.Backend.SessionCookie)
	c.Backend.Timeout = getEnvDuration("POS_TIMEOUT", c.Backend.Timeout)
	c.Backend.RateLimitRPS = getEnvFloat("POS_RATE_LIMIT_RPS", c.Backend.RateLimitRPS)
	c.Backend.MaxConcurrency = getEnvInt("POS_MAX_CONCURRENCY", c.Backend.MaxConcurrency)

	c.Report.Timezone = getEnvString("REPORT_TIMEZONE", c.Report.Timezone)
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server max body bytes must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.Backend.RateLimitRPS <= 0 {
		return fmt.Errorf("backend rate limit RPS must be positive")
	}

	if c.Backend.MaxConcurrency <= 0 {
		return fmt.Errorf("backend max concurrency must be positive")
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid report timezone %q: %w", c.Report.Timezone, err)
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue Duration) Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return Duration(duration)
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Location resolves the reporting time zone used for hourly and daily buckets.
func (c *Config) Location() (*time.Location, error) {
	if c.Report.Timezone == "" || c.Report.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Report.Timezone)
}
