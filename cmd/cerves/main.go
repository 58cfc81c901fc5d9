package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juanlo017/cerves-app/internal/config"
	"github.com/juanlo017/cerves-app/internal/database"
	"github.com/juanlo017/cerves-app/internal/jobs"
	"github.com/juanlo017/cerves-app/internal/logging"
	"github.com/juanlo017/cerves-app/internal/push"
	"github.com/juanlo017/cerves-app/internal/server"
	"github.com/juanlo017/cerves-app/internal/store"
)

func main() {
	genVAPID := flag.Bool("gen-vapid", false, "print a new VAPID key pair and exit")
	restoreID := flag.String("restore-backup", "", "download and decrypt the backup with this id, then exit")
	restoreTo := flag.String("restore-to", "cerves-restored.db", "destination file for -restore-backup")
	flag.Parse()

	if *genVAPID {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate VAPID keys: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("CERVES_VAPID_PUBLIC_KEY=%s\nCERVES_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger, *restoreID, *restoreTo); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger, restoreID, restoreTo string) error {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if n, err := store.NewPlayerStore(db).RefreshNameKeys(); err != nil {
		return fmt.Errorf("refresh player search keys: %w", err)
	} else if n > 0 {
		logger.Info("refreshed player search keys", "count", n)
	}

	srv := server.New(db, cfg, logger)

	if restoreID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := srv.BackupManager().RestoreTo(ctx, restoreID, restoreTo); err != nil {
			return fmt.Errorf("restore backup %s: %w", restoreID, err)
		}
		logger.Info("backup restored", "id", restoreID, "path", restoreTo)
		return nil
	}

	deps := jobs.Deps{
		Invitations:   srv.InvitationStore(),
		InvitationTTL: cfg.InvitationTTL,
		Hub:           srv.Hub(),
		Limiter:       srv.RateLimiter(),
		Backups:       srv.BackupManager(),
		BackupHour:    cfg.BackupHour,
	}
	if n := srv.PushNotifier(); n != nil {
		deps.Notifier = n
		deps.Weekly = srv.Stats()
	}
	runner, err := jobs.New(deps, logger.With("component", "jobs"))
	if err != nil {
		return err
	}
	if err := runner.Register(); err != nil {
		return err
	}
	runner.Start()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("cerves listening", "addr", httpServer.Addr, "push", cfg.PushEnabled(), "backups", srv.BackupManager().Enabled())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		runner.Shutdown()
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down")
	if err := runner.Shutdown(); err != nil {
		logger.Warn("scheduler shutdown", "error", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
