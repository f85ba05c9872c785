// Package config loads service configuration from the environment, an
// optional .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/patterns"
)

// Config is shared by every service; each reads the keys it needs.
type Config struct {
	HTTPAddr         string
	CartServiceURL   string
	CouponServiceURL string
	RequestTimeout   time.Duration
	MutationWait     time.Duration
	BulkheadSize     int
	BulkheadWait     time.Duration
	SessionCacheSize int
	CartDBPath       string
	LogLevel         string
	CORSOrigins      []string
}

// Load reads configuration. Environment variables win over the config file
// named by CONFIG_FILE, which wins over defaults. A .env file (ENV_FILE,
// default ".env") is loaded first if present and never overrides variables
// already set.
func Load(defaultAddr string) (Config, error) {
	envFile := ".env"
	v := viper.New()
	v.AutomaticEnv()
	if f := v.GetString("env_file"); f != "" {
		envFile = f
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	v.SetDefault("http_addr", defaultAddr)
	v.SetDefault("cart_service_url", "http://localhost:8081")
	v.SetDefault("coupon_service_url", "http://localhost:8082")
	v.SetDefault("request_timeout", patterns.DefaultTimeout)
	v.SetDefault("mutation_wait", patterns.DefaultMutationWait)
	v.SetDefault("bulkhead_size", 10)
	v.SetDefault("bulkhead_wait", patterns.DefaultBulkheadWait)
	v.SetDefault("session_cache_size", 1024)
	v.SetDefault("cart_db_path", "file:cart.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("cors_origins", "*")

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		HTTPAddr:         v.GetString("http_addr"),
		CartServiceURL:   strings.TrimRight(v.GetString("cart_service_url"), "/"),
		CouponServiceURL: strings.TrimRight(v.GetString("coupon_service_url"), "/"),
		RequestTimeout:   v.GetDuration("request_timeout"),
		MutationWait:     v.GetDuration("mutation_wait"),
		BulkheadSize:     v.GetInt("bulkhead_size"),
		BulkheadWait:     v.GetDuration("bulkhead_wait"),
		SessionCacheSize: v.GetInt("session_cache_size"),
		CartDBPath:       v.GetString("cart_db_path"),
		LogLevel:         v.GetString("log_level"),
		CORSOrigins:      splitList(v.GetString("cors_origins")),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.HTTPAddr == "":
		return errors.New("config: HTTP_ADDR is required")
	case c.RequestTimeout <= 0:
		return errors.New("config: REQUEST_TIMEOUT must be positive")
	case c.MutationWait <= 0:
		return errors.New("config: MUTATION_WAIT must be positive")
	case c.BulkheadSize < 1:
		return errors.New("config: BULKHEAD_SIZE must be at least 1")
	case c.SessionCacheSize < 1:
		return errors.New("config: SESSION_CACHE_SIZE must be at least 1")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	return nil
}

// ConfigureLogging sets the JSON formatter and the configured level on the
// standard logrus logger.
func (c Config) ConfigureLogging() {
	log.SetFormatter(&log.JSONFormatter{})
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
