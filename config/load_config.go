package config

import (
	"errors"
	"fmt"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"os"
	"strconv"
	"strings"
	"time"
)

const minProductionSecretLength = 32

// Default returns the development configuration. The secret is insecure and
// Validate rejects it in prod-like environments.
func Default() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			BasePath:        DefaultBasePath,
			RequestTimeout:  "3s",
			ShutdownTimeout: "5s",
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "5m",
			AutoMigrate:     true,
		},
		JWT: JWTConfig{
			SecretKey:        DefaultSecretKey,
			Issuer:           DefaultIssuer,
			AccessTokenTTL:   DefaultAccessTokenTTL,
			RefreshTokenTTL:  DefaultRefreshTokenTTL,
			RevokeAllOnReuse: true,
		},
		Security: SecurityConfig{
			BcryptCost: bcrypt.DefaultCost,
		},
		Webhook: WebhookConfig{
			Timeout: "5s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig layers defaults, the yaml file at filePath (skipped when empty)
// and environment variables, then validates the result.
func LoadConfig(filePath string) (*Config, error) {
	cfg := Default()

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("ошибка парсинга .yaml файла: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("невалидная конфигурация: %w", err)
	}

	return cfg, nil
}

func (cfg *Config) applyEnv() error {
	setString(&cfg.Environment, "APP_ENV")

	setString(&cfg.Server.Address, "SERVER_ADDRESS")
	setString(&cfg.Server.Host, "SERVER_HOST")
	setString(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.Server.BasePath, "SERVER_BASE_PATH")

	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	setString(&cfg.Database.ConnectionString, "DATABASE_CONNECTION_URL")

	setString(&cfg.JWT.SecretKey, "JWT_SECRET_KEY")
	setString(&cfg.JWT.Issuer, "JWT_ISSUER")
	setString(&cfg.JWT.AccessTokenTTL, "ACCESS_TOKEN_TTL")
	setString(&cfg.JWT.RefreshTokenTTL, "REFRESH_TOKEN_TTL")

	setString(&cfg.Admin.Email, "ADMIN_EMAIL")
	setString(&cfg.Admin.Password, "ADMIN_PASSWORD")

	setString(&cfg.Webhook.URL, "WEBHOOK_URL")
	setString(&cfg.Webhook.Timeout, "WEBHOOK_TIMEOUT")

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")

	if err := setBool(&cfg.Database.AutoMigrate, "DATABASE_AUTO_MIGRATE"); err != nil {
		return err
	}
	if err := setBool(&cfg.JWT.RevokeAllOnReuse, "JWT_REVOKE_ALL_ON_REUSE"); err != nil {
		return err
	}
	if value, ok := os.LookupEnv("BCRYPT_COST"); ok {
		cost, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("BCRYPT_COST должен быть числом: %w", err)
		}
		cfg.Security.BcryptCost = cost
	}

	return nil
}

// Validate collects every problem instead of stopping at the first one.
func (cfg *Config) Validate() error {
	var problems []error

	if cfg.JWT.SecretKey == "" {
		problems = append(problems, errors.New("jwt.secret_key не задан"))
	}

	accessTTL, err := parsePositiveDuration("jwt.access_token_ttl", cfg.JWT.AccessTokenTTL)
	if err != nil {
		problems = append(problems, err)
	}
	refreshTTL, err := parsePositiveDuration("jwt.refresh_token_ttl", cfg.JWT.RefreshTokenTTL)
	if err != nil {
		problems = append(problems, err)
	}
	if accessTTL > 0 && refreshTTL > 0 && accessTTL >= refreshTTL {
		problems = append(problems, errors.New("jwt.access_token_ttl должен быть меньше jwt.refresh_token_ttl"))
	}

	for name, value := range map[string]string{
		"server.request_timeout":     cfg.Server.RequestTimeout,
		"server.shutdown_timeout":    cfg.Server.ShutdownTimeout,
		"database.conn_max_lifetime": cfg.Database.ConnMaxLifetime,
		"webhook.timeout":            cfg.Webhook.Timeout,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", name, err))
		}
	}

	switch cfg.Database.Driver {
	case "postgres", "pgx":
		if cfg.Database.ConnectionString == "" {
			problems = append(problems, errors.New("database.connection_string не задан"))
		}
	case "memory":
	default:
		problems = append(problems, fmt.Errorf("неизвестный драйвер БД: %q", cfg.Database.Driver))
	}

	if cfg.Security.BcryptCost < bcrypt.MinCost || cfg.Security.BcryptCost > bcrypt.MaxCost {
		problems = append(problems, fmt.Errorf("security.bcrypt_cost вне диапазона [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost))
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Errorf("неизвестный уровень логирования: %q", cfg.Logging.Level))
	}

	if !strings.HasPrefix(cfg.Server.BasePath, "/") {
		problems = append(problems, errors.New("server.base_path должен начинаться с /"))
	}

	if (cfg.Admin.Email == "") != (cfg.Admin.Password == "") {
		problems = append(problems, errors.New("admin.email и admin.password задаются вместе"))
	}

	if cfg.IsProdLike() {
		if cfg.JWT.SecretKey == DefaultSecretKey || len(cfg.JWT.SecretKey) < minProductionSecretLength {
			problems = append(problems, errors.New("jwt.secret_key небезопасен для продакшена"))
		}
		if cfg.Database.Driver == "memory" {
			problems = append(problems, errors.New("драйвер memory запрещен в продакшене"))
		}
	}

	return errors.Join(problems...)
}

func (cfg *Config) IsProdLike() bool {
	switch strings.ToLower(strings.TrimSpace(cfg.Environment)) {
	case "production", "prod", "staging":
		return true
	default:
		return false
	}
}

func parsePositiveDuration(name string, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s должен быть положительным", name)
	}
	return d, nil
}

func setString(target *string, key string) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		*target = value
	}
}

func setBool(target *bool, key string) error {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s должен быть true/false: %w", key, err)
	}
	*target = parsed
	return nil
}
