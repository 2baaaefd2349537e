// Package main is the entry point for the Atelier site server.
// It loads configuration, opens the document store, sets up routing, and
// starts the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"atelier/internal/cache"
	"atelier/internal/config"
	"atelier/internal/content"
	"atelier/internal/database"
	"atelier/internal/handlers"
	"atelier/internal/middleware"
	"atelier/internal/render"
	"atelier/internal/router"
	"atelier/internal/session"
	"atelier/internal/storage"
	"atelier/internal/store"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON everywhere else.
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.IsDev() {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"store", cfg.StoreBackend,
		"auth", cfg.AuthEnabled(),
	)

	// Open the document store and make sure all five documents exist.
	docs, db, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open document store", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	seeded, err := store.Seed(context.Background(), docs)
	if err != nil {
		slog.Error("failed to seed documents", "error", err)
		os.Exit(1)
	}
	if seeded > 0 {
		slog.Info("empty documents created", "count", seeded)
	}

	// Connect to Valkey when configured. Without it pages are not cached
	// and sessions live in memory.
	secureCookies := !cfg.IsDev()
	var valkeyClient *redis.Client
	var sessionStore *session.Store
	if cfg.CacheEnabled() {
		valkeyClient, err = cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			slog.Error("failed to connect to valkey", "error", err)
			os.Exit(1)
		}
		defer valkeyClient.Close()
		sessionStore = session.NewStore(valkeyClient, secureCookies)
	} else {
		slog.Warn("valkey not configured, page cache disabled and sessions kept in memory")
		sessionStore = session.NewMemoryStore(secureCookies)
	}
	pageCache := cache.NewPageCache(valkeyClient, cache.DefaultPageTTL)

	// Media storage: S3-compatible bucket when configured, local disk otherwise.
	var backend storage.Backend
	mediaDir := ""
	if cfg.S3Bucket != "" {
		backend, err = storage.NewS3(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
		if err != nil {
			slog.Error("failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		backend, err = storage.NewLocal(cfg.MediaDir)
		if err != nil {
			slog.Error("failed to initialize media directory", "error", err)
			os.Exit(1)
		}
		mediaDir = cfg.MediaDir
		slog.Info("media stored on local disk", "dir", cfg.MediaDir)
	}
	uploader := storage.NewUploader(backend)

	renderer, err := render.New(cfg.SiteName)
	if err != nil {
		slog.Error("failed to initialize template renderer", "error", err)
		os.Exit(1)
	}

	svc := content.NewService(docs, pageCache)

	// Login is limited per IP to slow password guessing; the contact form
	// to keep the log readable.
	loginLimiter := middleware.NewRateLimiter(5, 15*time.Minute)
	defer loginLimiter.Stop()
	contactLimiter := middleware.NewRateLimiter(5, 10*time.Minute)
	defer contactLimiter.Stop()

	r := router.New(router.Config{
		Sessions: sessionStore,
		Auth: middleware.Auth{
			Enabled:     cfg.AuthEnabled(),
			RequireTOTP: cfg.AdminTOTPSecret != "",
			APIToken:    cfg.APIToken,
		},
		SecureCookies: secureCookies,
		CORSOrigins:   cfg.CORSOrigins,
		MediaDir:      mediaDir,

		API:   handlers.NewAPI(svc, uploader, cfg.MaxBodyBytes),
		Admin: handlers.NewAdmin(svc, renderer, uploader, cfg.AuthEnabled()),
		Login: handlers.NewAuth(renderer, sessionStore, handlers.Credentials{
			Username:     cfg.AdminUser,
			PasswordHash: cfg.AdminPasswordHash,
			TOTPSecret:   cfg.AdminTOTPSecret,
		}),
		Public: handlers.NewPublic(svc, renderer, pageCache),

		LoginLimiter:   loginLimiter,
		ContactLimiter: contactLimiter,
	})

	// WriteTimeout leaves room for large media uploads on slow links.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// openStore returns the configured document store. db is non-nil for the
// SQL backends and must be closed by the caller.
func openStore(cfg *config.Config) (store.DocumentStore, *sql.DB, error) {
	if cfg.StoreBackend == config.BackendFile {
		files, err := store.NewFileDocumentStore(cfg.DataDir)
		return files, nil, err
	}

	dialect, err := database.ParseDialect(cfg.StoreBackend)
	if err != nil {
		return nil, nil, err
	}
	dsn := cfg.SQLitePath
	if dialect == database.DialectPostgres {
		dsn = cfg.DSN()
	}

	db, err := database.Connect(dialect, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db, dialect); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store.NewSQLDocumentStore(db, dialect), db, nil
}
