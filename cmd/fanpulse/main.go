package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dstclair/fanpulse/internal/backup"
	"github.com/dstclair/fanpulse/internal/database"
	"github.com/dstclair/fanpulse/internal/logging"
	"github.com/dstclair/fanpulse/internal/push"
	"github.com/dstclair/fanpulse/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("FANPULSE_LOG_LEVEL"))

	port := os.Getenv("FANPULSE_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("FANPULSE_DB_PATH")
	if dbPath == "" {
		dbPath = "fanpulse.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cfg := server.Config{
		AdminToken:   os.Getenv("FANPULSE_ADMIN_TOKEN"),
		ReminderHour: envInt("FANPULSE_REMINDER_HOUR", 18),
		Push: push.Config{
			VAPIDPublicKey:  os.Getenv("FANPULSE_VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("FANPULSE_VAPID_PRIVATE_KEY"),
		},
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  os.Getenv("FANPULSE_S3_ENDPOINT"),
				Bucket:    os.Getenv("FANPULSE_S3_BUCKET"),
				Region:    os.Getenv("FANPULSE_S3_REGION"),
				AccessKey: os.Getenv("FANPULSE_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("FANPULSE_S3_SECRET_KEY"),
			},
			DBPath:        dbPath,
			Passphrase:    os.Getenv("FANPULSE_BACKUP_PASSPHRASE"),
			SaltHex:       os.Getenv("FANPULSE_BACKUP_SALT"),
			ScheduleHour:  envInt("FANPULSE_BACKUP_HOUR", 3),
			RetentionDays: envInt("FANPULSE_BACKUP_RETENTION_DAYS", 30),
		},
	}

	srv, err := server.New(db, cfg, logger)
	if err != nil {
		logger.Error("configure server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	if sched := srv.PushScheduler(); sched != nil {
		sched.Start(ctx)
		defer sched.Stop()
	}

	// Periodic rate limiter cleanup
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("fanpulse running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func envInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}
