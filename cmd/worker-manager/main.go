// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"driver-application/internal/application/store"
	awsclient "driver-application/internal/common/aws"
	"driver-application/internal/common/camunda"
	"driver-application/internal/common/config"
	"driver-application/internal/common/database"
	"driver-application/internal/common/logger"
	"driver-application/internal/common/observability"
	"driver-application/pkg/registry"

	ia "driver-application/internal/workers/application/index-application"
	sn "driver-application/internal/workers/application/send-notification"
)

const healthAddr = ":8080"

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
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{"service": "worker-manager"})

	zapLog.Info("Starting worker manager...", zap.String("environment", cfg.App.Environment))

	obs, err := observability.New("worker-manager")
	if err != nil {
		zapLog.Warn("otel metrics unavailable", zap.Error(err))
	}

	ctx := context.Background()

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

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	reg, err := registry.Default()
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
	}

	var workers []*camunda.Worker
	opts := func(taskType string) camunda.WorkerOptions {
		activity, err := reg.Lookup(taskType)
		if err != nil {
			zapLog.Fatal("unregistered worker", zap.Error(err))
		}
		zapLog.Info("registering worker",
			zap.String("taskType", taskType),
			zap.String("activityVersion", activity.Version),
			zap.Strings("errorCodes", activity.ErrorCodes),
		)
		wcfg := config.GetWorkerConfig(cfg, taskType)
		o := camunda.WorkerOptions{
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(wcfg.Timeout),
		}
		if obs != nil {
			o.Recorder = obs
		}
		return o
	}

	// --- Send Notification ---
	if config.IsWorkerEnabled(cfg, sn.TaskType) {
		region := cfg.Notifications.AWS.Region
		sesClient, err := awsclient.NewSESClient(ctx, region)
		if err != nil {
			zapLog.Fatal("failed to create SES client", zap.Error(err))
		}
		snsClient, err := awsclient.NewSNSClient(ctx, region)
		if err != nil {
			zapLog.Fatal("failed to create SNS client", zap.Error(err))
		}
		handler := sn.NewHandler(sn.LoadConfig(cfg), sesClient, snsClient, log)
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), sn.TaskType, opts(sn.TaskType), handler, log))
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", sn.TaskType))
	}

	// --- Index Application ---
	var esClient *database.ElasticsearchClient
	if config.IsWorkerEnabled(cfg, ia.TaskType) {
		iaCfg := ia.LoadConfig(cfg)
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := esClient.Ping(); err != nil {
				return err
			}
			return esClient.EnsureApplicationIndex(ctx, iaCfg.Index)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")

		handler := ia.NewHandler(iaCfg, store.NewPostgres(pg.DB), esClient.Client, log)
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), ia.TaskType, opts(ia.TaskType), handler, log))
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", ia.TaskType))
	}
	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	checks := map[string]func(context.Context) error{
		"postgres": pg.Ping,
		"zeebe":    zeebe.HealthCheck,
	}
	if esClient != nil {
		checks["elasticsearch"] = func(context.Context) error { return esClient.Ping() }
	}
	srv := &http.Server{
		Addr:              healthAddr,
		Handler:           healthMux(checks),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", healthAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if obs != nil {
		if err := obs.Shutdown(shutdownCtx); err != nil {
			zapLog.Error("Error stopping meter provider", zap.Error(err))
		}
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func healthMux(checks map[string]func(context.Context) error) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status, state := http.StatusOK, "ready"
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = "unavailable"
				status, state = http.StatusServiceUnavailable, "not_ready"
				continue
			}
			results[name] = "ok"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": state,
			"checks": results,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
