package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/pawkeep/internal/backup"
	"github.com/dukerupert/pawkeep/internal/config"
	"github.com/dukerupert/pawkeep/internal/database"
	"github.com/dukerupert/pawkeep/internal/logging"
	"github.com/dukerupert/pawkeep/internal/push"
	"github.com/dukerupert/pawkeep/internal/reminder"
	"github.com/dukerupert/pawkeep/internal/server"
	"github.com/dukerupert/pawkeep/internal/store"
	ws "github.com/dukerupert/pawkeep/internal/websocket"
)

func main() {
	generateVAPID := flag.Bool("generate-vapid", false, "print a fresh VAPID key pair and exit")
	backupNow := flag.Bool("backup-now", false, "run one backup and exit")
	restoreID := flag.Int64("restore", 0, "restore the backup with this ID and exit")
	listBackups := flag.Bool("list-backups", false, "list recorded backups and exit")
	flag.Parse()

	// Key generation needs no configuration; the output feeds the env vars.
	if *generateVAPID {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate VAPID keys: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("PAWKEEP_VAPID_PUBLIC_KEY=%s\nPAWKEEP_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		slog.Error("create data directory", "error", err)
		os.Exit(1)
	}
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	hub := ws.NewHub(logger.With("component", "websocket"))

	salt, err := cfg.BackupSaltBytes()
	if err != nil {
		slog.Error("decode backup salt", "error", err)
		os.Exit(1)
	}
	backups := store.NewBackupStore(db)
	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		},
		DBPath:        cfg.DBPath,
		Schedule:      cfg.BackupSchedule,
		Passphrase:    cfg.BackupPassphrase,
		Salt:          salt,
		RetentionDays: cfg.BackupRetentionDays,
	}, db, backups, logger, func(s backup.Status) {
		hub.Broadcast(ws.BackupState(string(s.State), s.InProgress, s.Error))
	})

	if *backupNow {
		id, err := backupMgr.RunNow(context.Background())
		if err != nil {
			slog.Error("backup failed", "error", err)
			os.Exit(1)
		}
		slog.Info("backup complete", "id", id)
		return
	}
	if *restoreID > 0 {
		if err := backupMgr.Restore(context.Background(), *restoreID, cfg.BackupPassphrase); err != nil {
			slog.Error("restore failed", "error", err)
			os.Exit(1)
		}
		return
	}
	if *listBackups {
		records, err := backups.List(50)
		if err != nil {
			slog.Error("list backups", "error", err)
			os.Exit(1)
		}
		for _, b := range records {
			completed := "-"
			if b.CompletedAt != nil {
				completed = b.CompletedAt.Format(time.RFC3339)
			}
			fmt.Printf("%d\t%-9s\t%s\t%d\t%s\n", b.ID, b.Status, b.Filename, b.SizeBytes, completed)
		}
		return
	}

	// Env-provided keys win; otherwise keys are generated once and kept in
	// the database, so subscriptions and the keys that sign them survive
	// restarts and restores together.
	vapidPub, vapidPriv := cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey
	if !cfg.PushEnabled() {
		vapidPub, vapidPriv, err = push.LoadOrCreateKeys(store.NewSettingsStore(db))
		if err != nil {
			slog.Error("load VAPID keys", "error", err)
			os.Exit(1)
		}
	}
	pushSvc := push.NewService(vapidPub, vapidPriv, cfg.PushContact)

	notifier := reminder.NewNotifier(store.NewEventStore(db), store.NewPushStore(db), pushSvc, hub, cfg.ReminderSlice, logger)

	srv := server.New(db, hub, pushSvc, logger)

	httpServer := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if err := notifier.Start(); err != nil {
		slog.Error("start reminder notifier", "error", err)
		os.Exit(1)
	}
	if err := backupMgr.Start(); err != nil {
		slog.Error("start backup manager", "error", err)
		os.Exit(1)
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("pawkeep listening", "addr", cfg.ServerAddr())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	notifier.Stop()
	backupMgr.Stop()
}
