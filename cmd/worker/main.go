package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"scriba/internal/asr"
	"scriba/internal/config"
	"scriba/internal/storage"
	"scriba/internal/store"
	"scriba/internal/worker"
)

func main() {
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

	// Unlike the server, a worker is useless without the model, so fail
	// fast instead of loading lazily.
	wc := asr.DefaultWhisperConfig(cfg.ModelDir)
	wc.VADModelPath = cfg.VADModelPath
	wc.NumThreads = cfg.NumThreads
	engine, err := asr.NewWhisperEngine(wc)
	if err != nil {
		log.Fatalf("load model: %v", err)
	}
	defer engine.Close()

	proc := worker.NewProcessor(jobStore, engine)
	w := worker.New(storage.NewQueueRepository(db), proc, cfg.WorkerID)
	w.SetInterval(cfg.PollInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	log.Printf("Worker %s polling every %s", cfg.WorkerID, cfg.PollInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down")
	cancel()
	w.Stop()
}
