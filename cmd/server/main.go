package main

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"scriba/internal/asr"
	"scriba/internal/batch"
	"scriba/internal/config"
	"scriba/internal/handlers"
	"scriba/internal/storage"
	"scriba/internal/store"
	"scriba/internal/version"
	"scriba/internal/worker"
)

func main() {
	// Load .env if present, skip otherwise.
	_ = godotenv.Load()

	cfg := config.Load()

	jobStore := store.New(cfg.DataRoot)
	if err := jobStore.EnsureDirs(); err != nil {
		log.Fatalf("data root: %v", err)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	batchRepo := storage.NewBatchRepository(db)
	groupRepo := storage.NewGroupRepository(db)
	queueRepo := storage.NewQueueRepository(db)

	batches := batch.NewManager(jobStore, batchRepo, queueRepo, cfg.MaxBatchFiles)
	groups := batch.NewGroupManager(groupRepo, batches)

	// The model loads on first use so that status and download endpoints
	// work on machines without the model installed.
	engine := lazyEngine(cfg)

	transcribeHandler := handlers.NewTranscribeHandler(engine)
	batchHandler := handlers.NewBatchHandler(batches)
	groupHandler := handlers.NewGroupHandler(groups)
	jobHandler := handlers.NewJobHandler(jobStore)
	downloadHandler := handlers.NewDownloadHandler(jobStore, batches, groups)
	systemHandler := handlers.NewSystemHandler(cfg, queueRepo)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.GET("/", systemHandler.Root)
	e.GET("/health", systemHandler.Health)
	e.GET("/settings", systemHandler.Settings)

	e.POST("/transcribe", transcribeHandler.Transcribe)
	e.POST("/transcribe/export", transcribeHandler.TranscribeExport)

	e.POST("/transcribe/batch", batchHandler.Create)
	e.POST("/transcribe/batch/folder", batchHandler.CreateFromFolder)
	e.POST("/transcribe/batch/folder/preview", batchHandler.PreviewFolder)
	e.GET("/batches/:batch_id", batchHandler.Get)
	e.GET("/batches/:batch_id/download", downloadHandler.BatchZip)
	e.GET("/batches/:batch_id/download/txt", downloadHandler.BatchCombined)

	e.GET("/jobs/:job_id", jobHandler.Get)
	e.GET("/jobs/:job_id/download", jobHandler.Download)

	e.POST("/batch-groups", groupHandler.Create)
	e.GET("/batch-groups/:group_id", groupHandler.Get)
	e.GET("/batch-groups/:group_id/download", downloadHandler.GroupZip)
	e.GET("/batch-groups/:group_id/download/txt", downloadHandler.GroupCombined)

	if cfg.EmbeddedWorker {
		proc := worker.NewProcessor(jobStore, lazyEngineAdapter{provider: engine})
		w := worker.New(queueRepo, proc, cfg.WorkerID)
		w.SetInterval(cfg.PollInterval)
		w.Start(context.Background())
		defer w.Stop()
		log.Printf("Embedded worker %s polling every %s", cfg.WorkerID, cfg.PollInterval)
	}

	log.Printf("Starting scriba v%s on port %s", version.Version, cfg.Port)
	if err := e.Start(fmt.Sprintf(":%s", cfg.Port)); err != nil {
		log.Fatal(err)
	}
}

// lazyEngine builds the whisper engine on first call and caches it.
func lazyEngine(cfg config.Config) handlers.EngineProvider {
	var (
		once   sync.Once
		engine asr.Engine
		err    error
	)
	return func() (asr.Engine, error) {
		once.Do(func() {
			wc := asr.DefaultWhisperConfig(cfg.ModelDir)
			wc.VADModelPath = cfg.VADModelPath
			wc.NumThreads = cfg.NumThreads
			engine, err = asr.NewWhisperEngine(wc)
		})
		return engine, err
	}
}

// lazyEngineAdapter lets the embedded worker share the server's lazily
// created engine.
type lazyEngineAdapter struct {
	provider handlers.EngineProvider
}

func (a lazyEngineAdapter) Transcribe(ctx context.Context, inputPath string, opts asr.Options) (*asr.Result, error) {
	engine, err := a.provider()
	if err != nil {
		return nil, err
	}
	return engine.Transcribe(ctx, inputPath, opts)
}
