package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"editd/internal/common/fsutil"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr           string   `json:"addr" yaml:"addr" toml:"addr"`
	ResultsDir     string   `json:"results_dir" yaml:"results_dir" toml:"results_dir"`
	Model          string   `json:"model" yaml:"model" toml:"model"`
	TimeoutMinutes float64  `json:"timeout_minutes" yaml:"timeout_minutes" toml:"timeout_minutes"`
	QueueDepth     int      `json:"queue_depth" yaml:"queue_depth" toml:"queue_depth"`
	Preload        bool     `json:"preload" yaml:"preload" toml:"preload"`
	TestMode       bool     `json:"test_mode" yaml:"test_mode" toml:"test_mode"`
	WorkerURL      string   `json:"worker_url" yaml:"worker_url" toml:"worker_url"`
	WorkerCmd      string   `json:"worker_cmd" yaml:"worker_cmd" toml:"worker_cmd"`
	MaxUploadMB    int      `json:"max_upload_mb" yaml:"max_upload_mb" toml:"max_upload_mb"`
	CORSOrigins    []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	if !fsutil.PathExists(path) {
		return cfg, fmt.Errorf("config file not found: %s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
