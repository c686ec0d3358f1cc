package main

import (
	"EcommerceAuth/config"
	"EcommerceAuth/config/server"
	"EcommerceAuth/internal/handler"
	"EcommerceAuth/internal/logging"
	"EcommerceAuth/internal/notifier"
	"EcommerceAuth/internal/security"
	"EcommerceAuth/internal/service"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.LoadEnv(); err != nil {
		log.Fatalf("ошибка загрузки .env: %v", err)
	}

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("ошибка конфигурации: %v", err)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format).With("service", cfg.JWT.Issuer, "env", cfg.Environment)
	if cfg.JWT.SecretKey == config.DefaultSecretKey {
		logger.Warn(ctx, "используется секретный ключ по умолчанию, задайте JWT_SECRET_KEY")
	}

	storage, err := server.SetupStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "не удалось подготовить хранилище", "error", err)
		os.Exit(1)
	}
	defer storage.Close()

	tokenManager := security.NewTokenManager(
		[]byte(cfg.JWT.SecretKey),
		cfg.JWT.Issuer,
		cfg.JWT.AccessTokenDuration(),
		cfg.JWT.RefreshTokenDuration(),
	)
	webhookNotifier := notifier.NewWebhookNotifier(cfg.Webhook.URL, cfg.Webhook.TimeoutDuration())

	authenticationService, err := service.NewAuthenticationService(
		storage.Users,
		storage.RefreshTokens,
		tokenManager,
		security.NewBcryptHasher(cfg.Security.BcryptCost),
		webhookNotifier,
		logger,
		cfg,
	)
	if err != nil {
		logger.Error(ctx, "не удалось создать сервис", "error", err)
		os.Exit(1)
	}

	if cfg.Admin.Email != "" {
		if err := authenticationService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			logger.Error(ctx, "не удалось создать администратора", "error", err)
			os.Exit(1)
		}
	}

	httpServer, router := server.SetupServer(cfg, logger)

	requestTimeout := cfg.Server.RequestTimeoutDuration()
	authenticationHandler := handler.NewAuthenticationHandler(authenticationService, logger, requestTimeout, storage.Pinger)
	adminHandler := handler.NewAdminHandler(authenticationService, logger, requestTimeout)
	handler.RegisterRoutes(router, authenticationHandler, adminHandler, tokenManager, cfg.Server.BasePath)

	runServer(ctx, httpServer, cfg, logger)
}

func runServer(ctx context.Context, httpServer *http.Server, cfg *config.Config, logger logging.Logger) {
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(ctx, "сервер запущен", "address", httpServer.Addr, "base_path", cfg.Server.BasePath)
		serverErrors <- httpServer.ListenAndServe()
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "ошибка работы сервера", "error", err)
			return
		}
	case sig := <-signalChannel:
		logger.Info(ctx, "получен сигнал остановки работы сервера", "signal", sig.String())
	}

	shutDownCtx, shutDownCancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeoutDuration())
	defer shutDownCancel()

	if err := httpServer.Shutdown(shutDownCtx); err != nil {
		logger.Error(ctx, "ошибка при остановке сервера", "error", err)
	} else {
		logger.Info(ctx, "сервер успешно остановлен")
	}
}
