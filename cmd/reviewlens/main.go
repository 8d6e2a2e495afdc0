package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/reviewlens/reviewlens/internal/adapter/driven/github"
	"github.com/reviewlens/reviewlens/internal/adapter/driven/gitrepo"
	sqliteadapter "github.com/reviewlens/reviewlens/internal/adapter/driven/sqlite"
	httphandler "github.com/reviewlens/reviewlens/internal/adapter/driving/http"
	"github.com/reviewlens/reviewlens/internal/application"
	"github.com/reviewlens/reviewlens/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"repo", cfg.RepoFullName,
		"pr", cfg.PRNumber,
		"git_dir", cfg.GitDir,
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"poll_interval", cfg.PollInterval,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	prStore := sqliteadapter.NewPRRepo(db)
	commentStore := sqliteadapter.NewCommentRepo(db)
	ghClient := githubadapter.NewClient(cfg.GitHubToken, cfg.GitHubUsername)
	patches := gitrepo.NewProvider(cfg.GitDir)

	// 6. Create the coordinator and sync service.
	coordinator := application.NewCoordinator(patches)
	syncSvc := application.NewSyncService(
		ghClient,
		prStore,
		commentStore,
		coordinator,
		cfg.RepoFullName,
		cfg.PRNumber,
		cfg.PollInterval,
	)
	go syncSvc.Start(ctx)

	// 7. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(prStore, commentStore, coordinator, syncSvc, cfg.RepoFullName, cfg.PRNumber, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("reviewlens started",
		"repo", cfg.RepoFullName,
		"pr", cfg.PRNumber,
		"listen_addr", cfg.ListenAddr,
	)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 9. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
