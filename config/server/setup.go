package server

import (
	"EcommerceAuth/config"
	"EcommerceAuth/internal"
	"EcommerceAuth/internal/handler"
	"EcommerceAuth/internal/logging"
	"EcommerceAuth/internal/ports"
	"EcommerceAuth/internal/repository"
	"EcommerceAuth/internal/repository/memory"
	"context"
	"errors"
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"io/fs"
	"net/http"
)

// Storage bundles the repositories selected by database.driver.
type Storage struct {
	Users         ports.UserRepositoryInterface
	RefreshTokens ports.RefreshTokenRepositoryInterface
	Pinger        handler.Pinger
	Close         func() error
}

// LoadEnv loads the first .env files that exist. Missing files are skipped so
// the service can run on plain environment variables.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env", "../.env"}
	}
	for _, path := range paths {
		err := godotenv.Load(path)
		if err == nil {
			continue
		}
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return fmt.Errorf("ошибка чтения %s: %w", path, err)
	}
	return nil
}

func SetupStorage(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Storage, error) {
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn(ctx, "используется хранилище в памяти, данные не сохраняются между перезапусками")
		users := memory.NewUserStore()
		return &Storage{
			Users:         users,
			RefreshTokens: memory.NewRefreshTokenStore(),
			Pinger:        users,
			Close:         func() error { return nil },
		}, nil
	case "postgres", "pgx":
		database, err := internal.NewDatabaseConnection(ctx, cfg.Database.Driver, cfg.Database.ConnectionString, internal.PoolOptions{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetimeDuration(),
		})
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения: %w", err)
		}

		if cfg.Database.AutoMigrate {
			if err := database.RunMigrations(ctx); err != nil {
				_ = database.Close()
				return nil, err
			}
			logger.Info(ctx, "миграции применены")
		}

		return &Storage{
			Users:         repository.NewUserRepository(database),
			RefreshTokens: repository.NewRefreshTokenRepository(database),
			Pinger:        database,
			Close:         database.Close,
		}, nil
	default:
		return nil, fmt.Errorf("неизвестный драйвер БД: %q", cfg.Database.Driver)
	}
}

func SetupServer(cfg *config.Config, logger logging.Logger) (*http.Server, *chi.Mux) {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(handler.RequestLogger(logger))
	router.Use(middleware.Recoverer)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.RequestTimeoutDuration(),
	}

	return server, router
}
