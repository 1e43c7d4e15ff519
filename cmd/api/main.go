package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"alfredoptarigan/async-cv-evaluator/internal/config"
	"alfredoptarigan/async-cv-evaluator/internal/handlers"
	applog "alfredoptarigan/async-cv-evaluator/internal/logger"
	"alfredoptarigan/async-cv-evaluator/internal/repositories"
	"alfredoptarigan/async-cv-evaluator/internal/services"
)

func main() {
	cfg, warnings := config.Load()

	zlog, err := applog.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("creating a logger: %v", err)
	}
	defer zlog.Sync()

	for _, w := range warnings {
		zlog.Warn(w)
	}
	zlog.Info("config loaded", zap.String("env", cfg.Server.Env), zap.String("engine", cfg.Evaluation.Engine))

	ctx := context.Background()

	docRepo := newDocumentRepository(cfg, zlog)
	jobStore := repositories.NewJobStore()

	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		zlog.Fatal("failed to create upload directory", zap.Error(err))
	}

	var gemini services.GeminiService
	if cfg.Gemini.APIKey != "" {
		gemini, err = services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel, cfg.Worker.RetryInitialDelay, zlog)
		if err != nil {
			zlog.Warn("gemini unavailable", zap.Error(err))
			gemini = nil
		}
	}

	loader := services.NewDocumentLoader(docRepo, storageService, services.NewPDFParserService(), zlog)
	retriever := services.NewContextRetriever(newReferenceStore(ctx, cfg, gemini, zlog), cfg.Evaluation.RetrievalTimeout, zlog)
	engine := newEngine(cfg, gemini, zlog)

	pipeline := services.NewPipeline(jobStore, loader, retriever, engine, services.PipelineTimeouts{
		Load:       cfg.Evaluation.LoadTimeout,
		Evaluation: cfg.Evaluation.EvaluationTimeout,
	}, zlog)

	worker := services.NewWorker(pipeline, cfg.Worker.Concurrency, cfg.Worker.QueueSize, zlog)
	worker.Start(ctx)

	evaluations := services.NewEvaluationService(jobStore, worker, pipeline.Reject, zlog)

	h := handlers.Handlers{
		Upload:   handlers.NewUploadHandler(docRepo, storageService, cfg.Storage.MaxFileSize, zlog),
		Evaluate: handlers.NewEvaluationHandler(evaluations),
		Result:   handlers.NewResultHandler(evaluations),
	}

	app := fiber.New(fiber.Config{
		AppName:      "AI CV Evaluator API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(2*cfg.Storage.MaxFileSize) + 1<<20,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	handlers.Register(app, h)
	handlers.Register(app.Group("/api/v1"), h)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := gracefulShutdown(quit, app, worker, zlog)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zlog.Info("server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		zlog.Fatal("failed to start server", zap.Error(err))
	}

	<-done
	zlog.Info("server exited")
}

type shutdowner interface {
	Shutdown() error
}

// gracefulShutdown stops the server and then the worker after a signal. The
// returned channel is closed once queued tasks have been drained.
func gracefulShutdown(quit <-chan os.Signal, server shutdowner, worker services.Worker, zlog *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-quit
		zlog.Info("shutting down server")
		if err := server.Shutdown(); err != nil {
			zlog.Error("server forced to shutdown", zap.Error(err))
		}
		worker.Stop()
	}()
	return done
}

func newDocumentRepository(cfg *config.Config, zlog *zap.Logger) repositories.DocumentRepository {
	if !cfg.Database.Enabled {
		zlog.Info("database disabled, tracking uploads in memory")
		return repositories.NewMemoryDocumentRepository()
	}

	db, err := config.InitDatabase(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	return repositories.NewDocumentRepository(db)
}

// newReferenceStore returns nil when Qdrant or embeddings are unavailable;
// the retriever then answers every lookup with the fallback context.
func newReferenceStore(ctx context.Context, cfg *config.Config, gemini services.GeminiService, zlog *zap.Logger) services.ReferenceStore {
	if gemini == nil {
		zlog.Warn("no embedding provider configured, reference context will use fallback")
		return nil
	}

	qdrantService, err := services.NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, cfg.Qdrant.VectorSize, zlog)
	if err != nil {
		zlog.Warn("qdrant unavailable, reference context will use fallback", zap.Error(err))
		return nil
	}

	initCtx, cancel := context.WithTimeout(ctx, cfg.Evaluation.RetrievalTimeout)
	defer cancel()
	if err := qdrantService.InitCollection(initCtx); err != nil {
		// queries will keep failing until Qdrant is reachable, each one falling back
		zlog.Warn("qdrant collection not ready", zap.Error(err))
	}

	return services.NewQdrantReferenceStore(gemini, qdrantService, "")
}

func newEngine(cfg *config.Config, gemini services.GeminiService, zlog *zap.Logger) services.EvaluationEngine {
	simulated := services.NewSimulatedEngine(nil)
	if cfg.Evaluation.Engine != config.EngineGemini {
		return simulated
	}
	if gemini == nil {
		zlog.Warn("gemini engine requested without GEMINI_API_KEY, using simulated engine")
		return simulated
	}
	return services.NewGeminiEngine(gemini, simulated, cfg.Worker.RetryMaxAttempts, zlog)
}
