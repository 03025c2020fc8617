package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	p := writeFile(t, t.TempDir(), "cfg.yaml", "addr: \":9000\"\ntimeout_minutes: 5\ntest_mode: true\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.TimeoutMinutes != 5 || !cfg.TestMode {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	p := writeFile(t, t.TempDir(), "cfg.json", `{"addr":":9001","queue_depth":4}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9001" || cfg.QueueDepth != 4 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	p := writeFile(t, t.TempDir(), "cfg.toml", "addr = \":9002\"\nmodel = \"test-model\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9002" || cfg.Model != "test-model" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	p := writeFile(t, t.TempDir(), "cfg.ini", "addr=:9003")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestFromEnvOverlay(t *testing.T) {
	t.Setenv(EnvAddr, ":7000")
	t.Setenv(EnvTimeoutMinutes, "2.5")
	t.Setenv(EnvTestMode, "true")
	t.Setenv(EnvCORSOrigins, "https://a.example, https://b.example")
	cfg := FromEnv(Config{Addr: ":8080", TimeoutMinutes: 30})
	if cfg.Addr != ":7000" || cfg.TimeoutMinutes != 2.5 || !cfg.TestMode {
		t.Fatalf("env overlay not applied: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors origins not parsed: %+v", cfg.CORSOrigins)
	}
}

func TestFromEnvIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv(EnvTimeoutMinutes, "soon")
	t.Setenv(EnvQueueDepth, "-3")
	cfg := FromEnv(Config{TimeoutMinutes: 30, QueueDepth: 32})
	if cfg.TimeoutMinutes != 30 || cfg.QueueDepth != 32 {
		t.Fatalf("invalid env values should be ignored: %+v", cfg)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := ApplyDefaults(Config{})
	if cfg.Addr != ":8080" || cfg.TimeoutMinutes != 30 || cfg.QueueDepth != 32 || cfg.Model == "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	// explicit values survive
	cfg = ApplyDefaults(Config{Addr: ":1", TimeoutMinutes: 1})
	if cfg.Addr != ":1" || cfg.TimeoutMinutes != 1 {
		t.Fatalf("defaults clobbered explicit values: %+v", cfg)
	}
}
