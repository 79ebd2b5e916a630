// cmd/application-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"driver-application/internal/api"
	"driver-application/internal/application/formsession"
	"driver-application/internal/application/guard"
	"driver-application/internal/application/notify"
	"driver-application/internal/application/resumetoken"
	"driver-application/internal/application/ssncrypt"
	"driver-application/internal/application/store"
	"driver-application/internal/common/camunda"
	"driver-application/internal/common/config"
	"driver-application/internal/common/database"
	"driver-application/internal/common/logger"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{"service": "application-server"})

	zapLog.Info("Starting application server...", zap.String("environment", cfg.App.Environment))
	ctx := context.Background()

	// --- Secrets ---
	key, err := cfg.Security.EncryptionKey()
	if err != nil {
		zapLog.Fatal("invalid ssn encryption key", zap.Error(err))
	}
	cipher, err := ssncrypt.New(key)
	if err != nil {
		zapLog.Fatal("ssn cipher init failed", zap.Error(err))
	}
	tokens, err := resumetoken.NewCodec(cfg.Security.ResumeTokenSecret, cfg.Security.ResumeTokenLifetime())
	if err != nil {
		zapLog.Fatal("resume token codec init failed", zap.Error(err))
	}

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if err := pg.Ping(ctx); err != nil {
			return err
		}
		return pg.Migrate(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	policy := guard.Policy{MinDwell: cfg.Security.MinDwell(), HoneypotField: cfg.Security.HoneypotField}
	server := api.New(api.Options{
		Drafts:         store.NewPostgres(pg.DB),
		SSN:            cipher,
		FormSessions:   formsession.NewStore(rdb.Client, policy, cfg.Security.FormSessionLifetime()),
		Tokens:         tokens,
		Notifier:       notify.NewDispatcher(zeebe, cfg.Camunda.ProcessID, log),
		NotifyClaims:   notify.NewClaims(rdb.Client, notify.DefaultClaimTTL),
		Logger:         log,
		SiteURL:        cfg.Application.SiteURL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Application.MaxUploadBytes,
		ReadyChecks: map[string]api.CheckFunc{
			"postgres": pg.Ping,
			"redis":    rdb.Ping,
			"zeebe":    zeebe.HealthCheck,
		},
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout:      config.GetDuration(cfg.Server.WriteTimeout),
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	server.Wait()
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Application server stopped gracefully")
}
