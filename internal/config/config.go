package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all runtime settings. Every field comes from an environment
// variable and has a working default, so the service starts with no config
// at all (models still need to be downloaded separately).
type Config struct {
	Port     string // PORT
	DataRoot string // DATA_ROOT: batches and job index live under here
	DBPath   string // DB_PATH: sqlite ledger (queue, batches, groups)

	ModelDir     string // MODEL_DIR: sherpa-onnx whisper model directory
	VADModelPath string // VAD_MODEL: silero_vad.onnx path (empty disables VAD)
	NumThreads   int    // NUM_THREADS: inference threads

	MaxBatchFiles int           // MAX_BATCH_FILES: default folder-scan limit
	PollInterval  time.Duration // WORKER_POLL_INTERVAL_MS: queue polling
	WorkerID      string        // WORKER_ID: label recorded on claimed jobs

	EmbeddedWorker bool // EMBEDDED_WORKER: run a worker inside the server
}

// Load reads the configuration from the environment.
func Load() Config {
	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		DataRoot:       getEnv("DATA_ROOT", "data"),
		ModelDir:       getEnv("MODEL_DIR", "models/whisper"),
		VADModelPath:   getEnv("VAD_MODEL", ""),
		NumThreads:     getEnvInt("NUM_THREADS", 4),
		MaxBatchFiles:  getEnvInt("MAX_BATCH_FILES", 50),
		WorkerID:       getEnv("WORKER_ID", defaultWorkerID()),
		EmbeddedWorker: getEnvBool("EMBEDDED_WORKER", false),
	}
	cfg.DBPath = getEnv("DB_PATH", filepath.Join(cfg.DataRoot, "scriba.db"))
	cfg.PollInterval = time.Duration(getEnvInt("WORKER_POLL_INTERVAL_MS", 1000)) * time.Millisecond
	return cfg
}

func defaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "worker"
	}
	return host
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
