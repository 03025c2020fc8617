package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment keys. MODEL_TIMEOUT_MINUTES keeps its historical name; the
// rest are namespaced.
const (
	EnvAddr           = "EDITD_ADDR"
	EnvResultsDir     = "EDITD_RESULTS_DIR"
	EnvModel          = "EDITD_MODEL"
	EnvTimeoutMinutes = "MODEL_TIMEOUT_MINUTES"
	EnvQueueDepth     = "EDITD_QUEUE_DEPTH"
	EnvPreload        = "EDITD_PRELOAD"
	EnvTestMode       = "EDITD_TEST_MODE"
	EnvWorkerURL      = "EDITD_WORKER_URL"
	EnvWorkerCmd      = "EDITD_WORKER_CMD"
	EnvMaxUploadMB    = "EDITD_MAX_UPLOAD_MB"
	EnvCORSOrigins    = "EDITD_CORS_ORIGINS"
)

// FromEnv overlays environment values onto cfg and returns it. A .env file
// in the working directory is honored when present; real environment
// variables win over it.
func FromEnv(cfg Config) Config {
	_ = godotenv.Load()

	cfg.Addr = getenv(EnvAddr, cfg.Addr)
	cfg.ResultsDir = getenv(EnvResultsDir, cfg.ResultsDir)
	cfg.Model = getenv(EnvModel, cfg.Model)
	cfg.WorkerURL = getenv(EnvWorkerURL, cfg.WorkerURL)
	cfg.WorkerCmd = getenv(EnvWorkerCmd, cfg.WorkerCmd)
	if v := os.Getenv(EnvTimeoutMinutes); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.TimeoutMinutes = f
		}
	}
	if v := os.Getenv(EnvQueueDepth); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.QueueDepth = n
		}
	}
	if v := os.Getenv(EnvMaxUploadMB); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxUploadMB = n
		}
	}
	if v := os.Getenv(EnvPreload); v != "" {
		cfg.Preload = parseBool(v)
	}
	if v := os.Getenv(EnvTestMode); v != "" {
		cfg.TestMode = parseBool(v)
	}
	if v := os.Getenv(EnvCORSOrigins); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
	return cfg
}

// ApplyDefaults fills any still-unset field.
func ApplyDefaults(cfg Config) Config {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = "./results"
	}
	if cfg.Model == "" {
		cfg.Model = "Qwen/Qwen-Image-Edit-2509"
	}
	if cfg.TimeoutMinutes <= 0 {
		cfg.TimeoutMinutes = 30
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 32
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 64
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
