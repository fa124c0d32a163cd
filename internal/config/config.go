package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPPort    string
	JWTSecret   string
	CORSOrigins string
	AWSRegion   string
	Database    DatabaseConfig
}

// DatabaseConfig describes where the database lives and how long startup
// waits for it.
type DatabaseConfig struct {
	Driver     string
	DSN        string // explicit DSN; when set the secret store is not consulted
	SecretName string
	Host       string
	Port       string
	Name       string
	SSLMode    string

	ConnRetries int
	ConnDelay   time.Duration
}

func Load() (*Config, error) {
	// .env is optional; container deployments pass plain environment variables.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	delay, err := parseDelay(v.GetString("DB_CONN_DELAY"))
	if err != nil {
		return nil, fmt.Errorf("config: DB_CONN_DELAY: %w", err)
	}

	cfg := &Config{
		AppEnv:      strings.ToLower(v.GetString("APP_ENV")),
		LogLevel:    v.GetString("LOG_LEVEL"),
		HTTPPort:    v.GetString("HTTP_PORT"),
		JWTSecret:   v.GetString("JWT_SECRET_KEY"),
		CORSOrigins: v.GetString("CORS_ORIGINS"),
		AWSRegion:   v.GetString("AWS_REGION"),
		Database: DatabaseConfig{
			Driver:      strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:         v.GetString("DATABASE_DSN"),
			SecretName:  v.GetString("DB_SECRET_NAME"),
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetString("DB_PORT"),
			Name:        v.GetString("DB_NAME"),
			SSLMode:     v.GetString("DB_SSL_MODE"),
			ConnRetries: v.GetInt("DB_CONN_RETRIES"),
			ConnDelay:   delay,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_PORT", "5000")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "employees")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_CONN_RETRIES", 10)
	v.SetDefault("DB_CONN_DELAY", "3")
}

// parseDelay accepts a bare number of seconds or a Go duration string.
func parseDelay(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(raw)
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET_KEY must be set")
	}
	if c.HTTPPort == "" {
		return errors.New("config: HTTP_PORT must be set")
	}

	db := c.Database
	switch db.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", db.Driver)
	}
	if db.ConnRetries < 1 {
		return fmt.Errorf("config: DB_CONN_RETRIES must be at least 1, got %d", db.ConnRetries)
	}
	if db.ConnDelay <= 0 {
		return fmt.Errorf("config: DB_CONN_DELAY must be positive, got %s", db.ConnDelay)
	}
	return nil
}

// Warnings lists settings that are legal but unsafe for production.
func (c *Config) Warnings() []string {
	var out []string
	if len(c.JWTSecret) < 32 {
		out = append(out, "JWT_SECRET_KEY is shorter than 32 characters")
	}
	if c.CORSOrigins == "*" {
		out = append(out, "CORS_ORIGINS allows every origin")
	}
	if c.Database.DSN != "" && c.Database.SecretName != "" {
		out = append(out, "DATABASE_DSN is set, DB_SECRET_NAME is ignored")
	}
	return out
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// AllowedOrigins normalizes the comma separated CORS_ORIGINS value.
func (c *Config) AllowedOrigins() string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}
