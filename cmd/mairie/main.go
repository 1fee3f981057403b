package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mlomp/mairie-backend/pkg/accounts"
	"github.com/mlomp/mairie-backend/pkg/api"
	"github.com/mlomp/mairie-backend/pkg/auth"
	"github.com/mlomp/mairie-backend/pkg/config"
	"github.com/mlomp/mairie-backend/pkg/content"
	"github.com/mlomp/mairie-backend/pkg/httputil"
	"github.com/mlomp/mairie-backend/pkg/media"
	"github.com/mlomp/mairie-backend/pkg/middleware"
	"github.com/mlomp/mairie-backend/pkg/observability"
	"github.com/mlomp/mairie-backend/pkg/sso"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	httputil.SetDevelopmentMode(cfg.IsDevelopment())

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.WithError(err).Error("failed to open database")
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MinConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.Timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		logger.WithError(err).Error("failed to reach database")
		os.Exit(1)
	}

	if err := accounts.RunMigrations(ctx, db); err != nil {
		logger.WithError(err).Error("account migrations failed")
		os.Exit(1)
	}
	if err := content.RunMigrations(ctx, db, logger); err != nil {
		logger.WithError(err).Error("content migrations failed")
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret)
	mailer := &accounts.LogMailer{Logger: logger, ResetLinkURL: cfg.Mail.ResetLinkURL}
	accountsService := accounts.NewService(db, tokens, mailer, logger)
	gate := middleware.NewAuthGate(tokens, accountsService)

	uploader, err := media.NewS3Store(cfg.Media, metrics)
	if err != nil {
		logger.WithError(err).Error("failed to initialize media store")
		os.Exit(1)
	}

	var ssoHandlers *sso.Handlers
	if cfg.OIDC.Enabled {
		provider, err := sso.NewProvider(ctx, cfg.OIDC)
		if err != nil {
			logger.WithError(err).Error("failed to initialize federated login")
			os.Exit(1)
		}
		ssoHandlers = sso.NewHandlers(provider, accountsService, logger)
	}

	janitor := accounts.NewJanitor(accountsService, logger)
	if err := janitor.Start(); err != nil {
		logger.WithError(err).Error("failed to start reset token janitor")
		os.Exit(1)
	}

	server := api.NewServer(*cfg, db, logger, metrics, registry, accountsService, uploader, gate, ssoHandlers)

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return janitor.Stop(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return db.Close()
	})

	go func() {
		logger.Info("server listening", "addr", httpServer.Addr, "environment", cfg.Environment)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("server stopped unexpectedly")
			os.Exit(1)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown finished with errors")
		os.Exit(1)
	}
}
