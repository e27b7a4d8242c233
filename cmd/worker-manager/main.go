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

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"chatbot-engine/internal/common/aws"
	"chatbot-engine/internal/common/camunda"
	"chatbot-engine/internal/common/config"
	"chatbot-engine/internal/common/database"
	"chatbot-engine/internal/common/genai"
	"chatbot-engine/internal/common/logger"
	"chatbot-engine/internal/common/observability"
	"chatbot-engine/internal/pipeline"
	"chatbot-engine/internal/repository/catalog"
	"chatbot-engine/internal/repository/knowledge"
	"chatbot-engine/internal/repository/leads"

	rpc "chatbot-engine/internal/workers/catalog/refresh-property-catalog"
	ct "chatbot-engine/internal/workers/chat/chat-turn"
	dk "chatbot-engine/internal/workers/knowledge/delete-knowledge"
	ik "chatbot-engine/internal/workers/knowledge/ingest-knowledge"
	sln "chatbot-engine/internal/workers/lead/send-lead-notification"
	"chatbot-engine/pkg/registry"
)

func main() {
	bootLog := logger.New("info", "console")
	defer bootLog.Sync()

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	log.Info("Starting worker manager...", nil)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Zeebe ---
	zeebeClient, err := camunda.Connect(ctx, cfg.Camunda, camunda.DefaultRetryConfig, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	log.Info("Zeebe client connected successfully", nil)

	// --- PostgreSQL ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres client failed", zap.Error(err))
	}
	defer pg.Close()
	if err := camunda.WithRetry(ctx, camunda.DefaultRetryConfig, log, "PostgreSQL connection", pg.Ping); err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	if err := pg.Migrate(ctx); err != nil {
		zapLog.Fatal("knowledge schema migration failed", zap.Error(err))
	}
	log.Info("PostgreSQL connected successfully", nil)

	// --- Elasticsearch ---
	esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		zapLog.Fatal("elasticsearch client failed", zap.Error(err))
	}
	if err := camunda.WithRetry(ctx, camunda.DefaultRetryConfig, log, "Elasticsearch connection", esClient.Ping); err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	if err := esClient.EnsurePropertyIndex(ctx, cfg.Database.Elasticsearch.PropertyIndex); err != nil {
		zapLog.Fatal("property index setup failed", zap.Error(err))
	}
	log.Info("Elasticsearch connected successfully", nil)

	// --- Redis ---
	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Fatal("redis client failed", zap.Error(err))
	}
	defer rdb.Close()
	if err := camunda.WithRetry(ctx, camunda.DefaultRetryConfig, log, "Redis connection", rdb.Ping); err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	log.Info("Redis connected successfully", nil)

	// --- Provider and collaborators ---
	provider := genai.NewProvider(cfg.AI, log)

	knowledgeRepo := knowledge.NewRepository(pg.DB)
	propertyCatalog := catalog.New(
		esClient.Client,
		rdb.Client,
		cfg.Database.Elasticsearch.PropertyIndex,
		config.GetDuration(cfg.Database.Redis.CacheTTL),
		log,
	)
	leadStore := leads.NewStore(rdb.Client)
	chatPipeline := pipeline.New(provider, knowledgeRepo, propertyCatalog, obs, log, pipeline.OptionsFromConfig(cfg.Retrieval))

	// --- Activity registry ---
	activities, err := registry.LoadRegistry(cfg.App.RegistryPath)
	if err == nil {
		err = activities.Validate()
	}
	if err != nil {
		log.Warn("Activity registry unavailable, job input schemas not enforced", map[string]interface{}{
			"path":  cfg.App.RegistryPath,
			"error": err.Error(),
		})
		activities = &registry.ActivityRegistry{}
	}
	if missing := activities.Missing(ik.TaskType, dk.TaskType, ct.TaskType, rpc.TaskType, sln.TaskType); len(missing) > 0 {
		log.Warn("Task types missing from activity registry", map[string]interface{}{"taskTypes": missing})
	}

	// --- Workers ---
	var workers []worker.JobWorker
	register := func(taskType string, handler camunda.JobHandler) {
		activity, _ := activities.Find(taskType)
		handler = camunda.WithInputValidation(handler, activity, log)
		if w := camunda.StartWorker(zeebeClient, taskType, config.GetWorkerConfig(cfg, taskType), handler, log); w != nil {
			workers = append(workers, w)
		}
	}

	register(ik.TaskType, ik.NewHandler(ik.LoadConfig(cfg), provider, knowledgeRepo, obs, log))
	register(dk.TaskType, dk.NewHandler(dk.LoadConfig(cfg), knowledgeRepo, obs, log))
	register(ct.TaskType, ct.NewHandler(ct.LoadConfig(cfg), chatPipeline, obs, log))
	register(rpc.TaskType, rpc.NewHandler(rpc.LoadConfig(cfg), propertyCatalog, obs, log))

	if config.IsWorkerEnabled(cfg, sln.TaskType) {
		awsClients, err := aws.NewClients(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("failed to create AWS clients", zap.Error(err))
		}
		register(sln.TaskType, sln.NewHandler(sln.LoadConfig(cfg), leadStore, awsClients.SES, awsClients.SNS, obs, log))
	}

	log.Info("Workers registered", map[string]interface{}{"count": len(workers)})

	// --- Health & Metrics Server ---
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler:           newMux(zeebeClient, pg, rdb),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Health/Metrics server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Health/Metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("Shutdown signal received, stopping workers...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping health server", map[string]interface{}{"error": err.Error()})
	}
	if err := zeebeClient.Close(); err != nil {
		log.Error("Error closing Zeebe client", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Worker manager stopped gracefully", nil)
}

func newMux(zeebeClient zbc.Client, pg *database.PostgresClient, rdb *database.RedisClient) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{}
		status := http.StatusOK

		check := func(name string, err error) {
			if err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				return
			}
			checks[name] = "ok"
		}
		check("zeebe", camunda.HealthCheck(r.Context(), zeebeClient, 2*time.Second))
		check("postgres", pg.Ping(r.Context()))
		check("redis", rdb.Ping(r.Context()))

		writeStatus(w, status, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
