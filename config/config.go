package config

import (
	"net"
	"time"
)

const (
	DefaultSecretKey       = "dev-secret-key"
	DefaultAccessTokenTTL  = "1h"
	DefaultRefreshTokenTTL = "720h"
	DefaultIssuer          = "auth-service"
	DefaultBasePath        = "/api/auth"
)

type Config struct {
	Environment string         `yaml:"environment"`
	Server      ServerConfig   `yaml:"server"`
	Database    DatabaseConfig `yaml:"database"`
	JWT         JWTConfig      `yaml:"jwt"`
	Security    SecurityConfig `yaml:"security"`
	Admin       AdminConfig    `yaml:"admin"`
	Webhook     WebhookConfig  `yaml:"webhook"`
	Logging     LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Address         string `yaml:"address"`
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	BasePath        string `yaml:"base_path"`
	RequestTimeout  string `yaml:"request_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver           string `yaml:"driver"`
	ConnectionString string `yaml:"connection_string"`
	MaxOpenConns     int    `yaml:"max_open_conns"`
	MaxIdleConns     int    `yaml:"max_idle_conns"`
	ConnMaxLifetime  string `yaml:"conn_max_lifetime"`
	AutoMigrate      bool   `yaml:"auto_migrate"`
}

type JWTConfig struct {
	SecretKey        string `yaml:"secret_key"`
	Issuer           string `yaml:"issuer"`
	AccessTokenTTL   string `yaml:"access_token_ttl"`
	RefreshTokenTTL  string `yaml:"refresh_token_ttl"`
	RevokeAllOnReuse bool   `yaml:"revoke_all_on_reuse"`
}

type SecurityConfig struct {
	BcryptCost int `yaml:"bcrypt_cost"`
}

// AdminConfig describes an admin identity created at startup when missing.
type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type WebhookConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Addr returns the listen address. An explicit address wins over host and port.
func (s ServerConfig) Addr() string {
	if s.Address != "" {
		return s.Address
	}
	return net.JoinHostPort(s.Host, s.Port)
}

func (s ServerConfig) RequestTimeoutDuration() time.Duration {
	return mustDuration(s.RequestTimeout, 3*time.Second)
}

func (s ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return mustDuration(s.ShutdownTimeout, 5*time.Second)
}

func (d DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return mustDuration(d.ConnMaxLifetime, 0)
}

func (j JWTConfig) AccessTokenDuration() time.Duration {
	return mustDuration(j.AccessTokenTTL, time.Hour)
}

func (j JWTConfig) RefreshTokenDuration() time.Duration {
	return mustDuration(j.RefreshTokenTTL, 720*time.Hour)
}

func (w WebhookConfig) TimeoutDuration() time.Duration {
	return mustDuration(w.Timeout, 5*time.Second)
}

// mustDuration is only reached after Validate, so a parse failure falls back.
func mustDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
