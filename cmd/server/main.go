package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"employee-directory/internal/audit"
	"employee-directory/internal/auth"
	"employee-directory/internal/bootstrap"
	"employee-directory/internal/config"
	"employee-directory/internal/database"
	"employee-directory/internal/directory"
	"employee-directory/internal/logger"
	"employee-directory/internal/secrets"
	"employee-directory/internal/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLog := logger.New(cfg.LogLevel, cfg.IsDevelopment(), os.Stdout)
	for _, w := range cfg.Warnings() {
		appLog.Warn(w, nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The secret store is only needed when no explicit DSN is configured.
	var resolver bootstrap.SecretResolver
	if cfg.Database.DSN == "" {
		client, err := secrets.NewAWSClient(ctx, cfg.AWSRegion)
		if err != nil {
			appLog.Fatal("aws config could not be loaded", map[string]interface{}{"error": err.Error()})
		}
		resolver = client
	}

	db, err := bootstrap.New(cfg.Database, resolver, appLog).Run(ctx)
	if err != nil {
		appLog.Fatal("database unavailable", map[string]interface{}{"error": err.Error()})
	}
	defer func() {
		if err := database.Close(db); err != nil {
			appLog.Error("database close failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	app := server.New(server.Deps{
		Config:    cfg,
		Logger:    appLog,
		Store:     auth.NewStore(db),
		Tokens:    auth.NewTokenService(cfg.JWTSecret, auth.AccessTokenTTL),
		Directory: directory.NewService(db),
		Audit:     audit.NewService(db),
	})

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("http server listening", map[string]interface{}{"port": cfg.HTTPPort})
		errCh <- app.Listen(":" + cfg.HTTPPort)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			appLog.Error("http server stopped", map[string]interface{}{"error": err.Error()})
		}
	case <-ctx.Done():
		appLog.Info("shutting down", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			appLog.Error("graceful shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
