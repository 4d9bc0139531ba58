package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/raglib/docqa/internal/ai"
	"github.com/raglib/docqa/internal/config"
	"github.com/raglib/docqa/internal/db"
	"github.com/raglib/docqa/internal/embedcache"
	"github.com/raglib/docqa/internal/filestore"
	"github.com/raglib/docqa/internal/handler"
	"github.com/raglib/docqa/internal/job"
	"github.com/raglib/docqa/internal/middleware"
	"github.com/raglib/docqa/internal/repo"
	"github.com/raglib/docqa/internal/schedule"
	"github.com/raglib/docqa/internal/service"
	"github.com/raglib/docqa/internal/splitter"
	"github.com/raglib/docqa/internal/vectorstore"
)

const embedLruCacheSize = 2048

// aiKeyConfigured reports whether the provider has credentials. Ollama is
// keyless and counts as configured.
func aiKeyConfigured(cfg config.AIConfig) bool {
	if cfg.Provider == "ollama" {
		return true
	}
	data, ok := cfg.Data.(map[string]interface{})
	if !ok {
		return false
	}
	key, _ := data["api_key"].(string)
	return strings.TrimSpace(key) != ""
}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docqa",
		Short: "document question answering server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docqa server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			database, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, database)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, database *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	docRepo := repo.NewDocumentRepo(database)
	cacheRepo := repo.NewEmbeddingCacheRepo(database)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	index, err := vectorstore.New(cfg.VectorStore, vectorstore.Deps{DB: database})
	if err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}

	providerArgs := cfg.AI.Data
	if providerArgs == nil {
		providerArgs = cfg.AI
	}
	aiProvider, err := ai.NewProvider(cfg.AI.Provider, providerArgs)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	generator := ai.NewGenerator(aiProvider, cfg.AI.Model)
	embedder := ai.NewEmbedder(aiProvider, cfg.AI.EmbedModel)
	embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)
	embedder = embedcache.WrapLruCacheToEmbedder(embedder, embedLruCacheSize, time.Hour)

	aiTimeout := time.Duration(cfg.AI.Timeout) * time.Second
	sp := splitter.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	ingestService := service.NewIngestService(docRepo, store, index, embedder, sp, aiTimeout)
	documentService := service.NewDocumentService(docRepo, store, index)
	queryService := service.NewQueryService(docRepo, index, embedder, generator, cfg.RAG.TopK, cfg.AI.MaxInputChars, aiTimeout)

	var authService *service.AuthService
	if cfg.Auth.Enabled {
		authService = service.NewAuthService(
			cfg.Auth.PasswordHash,
			cfg.Auth.JWTSecret,
			time.Hour*time.Duration(cfg.Auth.JWTTTLHours),
		)
	}

	deps := handler.RouterDeps{
		Auth:        handler.NewAuthHandler(authService),
		Documents:   handler.NewDocumentHandler(ingestService, documentService, cfg.UploadMaxBytes),
		Query:       handler.NewQueryHandler(queryService),
		Health:      handler.NewHealthHandler(documentService, cfg.AI.Provider, cfg.AI.Model, aiKeyConfigured(cfg.AI)),
		AuthEnabled: cfg.Auth.Enabled,
		JWTSecret:   cfg.Auth.JWTSecret,
		QueryWindow: time.Duration(cfg.QueryWindowMS) * time.Millisecond,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(cacheRepo, cfg.Jobs.CacheMaxAgeDays), cfg.Jobs.CacheCleanupSpec); err != nil {
		return fmt.Errorf("schedule cache cleanup: %w", err)
	}
	if err := scheduler.AddJob(job.NewReconcileJob(docRepo, ingestService, store), cfg.Jobs.ReconcileSpec); err != nil {
		return fmt.Errorf("schedule reconcile: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
