package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dreamware/trough/internal/terrors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"TROUGH_CONFIG_FILE", "TROUGH_STORE_DSN", "TROUGH_STORE_BOLT_PATH",
		"TROUGH_BULK_STORE_URL", "TROUGH_LOCAL_SEGMENT_ROOT", "TROUGH_ELECTION_CYCLE",
		"TROUGH_SYNC_CYCLE", "TROUGH_SERVICE_TTL", "TROUGH_HTTP_ADDR", "TROUGH_SYNC_PORT",
		"TROUGH_READ_PORT", "TROUGH_WRITE_PORT", "TROUGH_METRICS_ADDR", "TROUGH_LOG_LEVEL", "TROUGH_LOG_JSON",
		"TROUGH_NODE_ID",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
}

func TestLoadRequiresNodeID(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); !errors.Is(err, terrors.ErrConfig) {
		t.Fatalf("Load() without node id = %v, want terrors.ErrConfig", err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TROUGH_NODE_ID", "host-a")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SyncPort != 8080 {
		t.Errorf("SyncPort = %d, want 8080", cfg.SyncPort)
	}
	if cfg.ElectionCycle != 5*time.Second {
		t.Errorf("ElectionCycle = %v, want 5s", cfg.ElectionCycle)
	}
}

func TestLoadEnvOverridesYAMLFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "trough.yaml")
	if err := os.WriteFile(path, []byte("node_id: from-file\nsync_port: 7000\n"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("TROUGH_CONFIG_FILE", path)
	t.Setenv("TROUGH_NODE_ID", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NodeID != "from-env" {
		t.Errorf("NodeID = %q, want from-env (env must win over file)", cfg.NodeID)
	}
	if cfg.SyncPort != 7000 {
		t.Errorf("SyncPort = %d, want 7000 (from file, unset in env)", cfg.SyncPort)
	}
}
