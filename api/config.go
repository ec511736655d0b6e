package main

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type config struct {
	Port int    `yaml:"port"`
	Env  string `yaml:"env"`
	DB   struct {
		Driver       string        `yaml:"driver"`
		DSN          string        `yaml:"dsn"`
		MaxOpenConns int           `yaml:"max_open_conns"`
		MaxIdleConns int           `yaml:"max_idle_conns"`
		MaxIdleTime  time.Duration `yaml:"max_idle_time"`
	} `yaml:"db"`
	JWT struct {
		Secret string        `yaml:"secret"`
		TTL    time.Duration `yaml:"ttl"`
	} `yaml:"jwt"`
	BcryptCost int `yaml:"bcrypt_cost"`
	SMTP       struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Sender   string `yaml:"sender"`
	} `yaml:"smtp"`
	CORS struct {
		TrustedOrigins []string `yaml:"trusted_origins"`
	} `yaml:"cors"`
}

func defaultConfig() config {
	var cfg config
	cfg.Port = 3000
	cfg.Env = "development"
	cfg.DB.Driver = "postgres"
	cfg.DB.MaxOpenConns = 25
	cfg.DB.MaxIdleConns = 25
	cfg.DB.MaxIdleTime = 15 * time.Minute
	cfg.JWT.TTL = 7 * 24 * time.Hour
	cfg.BcryptCost = 12
	cfg.SMTP.Port = 25
	return cfg
}

// loadConfigFile overlays the YAML file at path onto cfg. Keys missing from the file keep their
// current values.
func loadConfigFile(path string, cfg *config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays the environment onto cfg. Unset variables are ignored.
func applyEnv(cfg *config, getenv func(string) string) error {
	var errs []error

	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s %q: %w", key, v, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s %q: %w", key, v, err))
				return
			}
			*dst = d
		}
	}

	num("PORT", &cfg.Port)
	str("ENV", &cfg.Env)
	str("DB_DRIVER", &cfg.DB.Driver)
	str("DB_DSN", &cfg.DB.DSN)
	num("DB_MAX_OPEN_CONNS", &cfg.DB.MaxOpenConns)
	num("DB_MAX_IDLE_CONNS", &cfg.DB.MaxIdleConns)
	dur("DB_MAX_IDLE_TIME", &cfg.DB.MaxIdleTime)
	str("JWT_SECRET", &cfg.JWT.Secret)
	dur("JWT_TTL", &cfg.JWT.TTL)
	num("BCRYPT_COST", &cfg.BcryptCost)
	str("SMTP_HOST", &cfg.SMTP.Host)
	num("SMTP_PORT", &cfg.SMTP.Port)
	str("SMTP_USERNAME", &cfg.SMTP.Username)
	str("SMTP_PASSWORD", &cfg.SMTP.Password)
	str("SMTP_SENDER", &cfg.SMTP.Sender)
	if v := getenv("CORS_TRUSTED_ORIGINS"); v != "" {
		cfg.CORS.TrustedOrigins = strings.Fields(v)
	}

	return errors.Join(errs...)
}

func (cfg *config) validate() error {
	switch cfg.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported db driver %q (want postgres or sqlite)", cfg.DB.Driver)
	}
	if cfg.DB.DSN == "" {
		return errors.New("db dsn must be provided")
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.JWT.TTL <= 0 {
		return errors.New("jwt ttl must be positive")
	}
	return nil
}

// ensureJWTSecret fills an empty secret with random bytes and reports whether it did so.
func (cfg *config) ensureJWTSecret() (bool, error) {
	if cfg.JWT.Secret != "" {
		return false, nil
	}
	secret := make([]byte, 32)
	_, err := rand.Read(secret)
	if err != nil {
		return false, err
	}
	cfg.JWT.Secret = string(secret)
	return true, nil
}
