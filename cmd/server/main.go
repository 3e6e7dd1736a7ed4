package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/serviapp/serviapp/internal/auth"
	"github.com/serviapp/serviapp/internal/blob"
	"github.com/serviapp/serviapp/internal/config"
	"github.com/serviapp/serviapp/internal/core"
	"github.com/serviapp/serviapp/internal/logging"
	"github.com/serviapp/serviapp/internal/store"
	"github.com/serviapp/serviapp/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store_driver", cfg.Store.Driver,
		"blob_driver", cfg.Blob.Driver,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	st, err := store.Open(ctx, store.Config{
		Driver: cfg.Store.Driver,
		URL:    cfg.Store.URL,
		Path:   cfg.Store.Path,
	})
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("store ready", "driver", cfg.Store.Driver)

	blobs, err := blob.Open(ctx, blob.Config{
		Driver:          cfg.Blob.Driver,
		Bucket:          cfg.Blob.Bucket,
		Region:          cfg.Blob.Region,
		Endpoint:        cfg.Blob.Endpoint,
		PathStyle:       cfg.Blob.PathStyle,
		AccessKeyID:     cfg.Blob.AccessKeyID,
		SecretAccessKey: cfg.Blob.SecretAccessKey,
		PublicBaseURL:   cfg.Blob.PublicBaseURL,
		Dir:             cfg.Blob.Dir,
		BaseURL:         "/logos",
	})
	if err != nil {
		slog.Error("failed to open blob store", "driver", cfg.Blob.Driver, "error", err)
		os.Exit(1)
	}

	authSvc, err := auth.NewService(st, auth.Config{
		Secret:      cfg.Auth.Secret,
		TokenTTL:    cfg.Auth.TokenTTL,
		IdleTimeout: cfg.Auth.IdleTimeout,
		AdminEmails: cfg.Auth.AdminEmails,
	})
	if err != nil {
		slog.Error("failed to create auth service", "error", err)
		os.Exit(1)
	}

	service := core.NewService(st, blobs)
	if err := service.Load(ctx); err != nil {
		slog.Error("failed to load listing", "error", err)
		os.Exit(1)
	}
	slog.Info("listing loaded", "records", service.Listing().Len())

	server := web.NewServer(service, authSvc, blobs, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
