// Package config builds Trough's runtime configuration from environment
// variables, optionally layered under a YAML file. See doc.go for
// complete package documentation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dreamware/trough/internal/terrors"
)

// Config holds every setting a trough-sync-master or trough-sync-local
// process needs at startup. Fields are populated by Load; nothing
// reads the environment directly once a Config exists.
type Config struct {
	StoreDSN      string `yaml:"store_dsn"`
	StoreBoltPath string `yaml:"store_bolt_path"`

	BulkStoreURL string `yaml:"bulk_store_url"`
	SegmentRoot  string `yaml:"segment_root"`

	ElectionCycle time.Duration `yaml:"election_cycle"`
	SyncCycle     time.Duration `yaml:"sync_cycle"`
	DefaultTTL    time.Duration `yaml:"default_ttl"`

	HTTPAddr    string `yaml:"http_addr"`
	SyncPort    int    `yaml:"sync_port"`
	ReadPort    int    `yaml:"read_port"`
	WritePort   int    `yaml:"write_port"`
	MetricsAddr string `yaml:"metrics_addr"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	NodeID string `yaml:"node_id"`
}

// defaults returns a Config with every field set to the value used when
// neither an env var nor a config file overrides it.
func defaults() Config {
	return Config{
		StoreBoltPath: "./trough.bolt",
		SegmentRoot:   "./segments",
		ElectionCycle: 5 * time.Second,
		SyncCycle:     10 * time.Second,
		DefaultTTL:    30 * time.Second,
		HTTPAddr:      ":8080",
		SyncPort:      8080,
		ReadPort:      8081,
		WritePort:     8082,
		MetricsAddr:   ":9090",
		LogLevel:      "info",
	}
}

// Load builds a Config: defaults, overlaid by TROUGH_CONFIG_FILE's YAML
// contents if set, overlaid by environment variables (which always win,
// per twelve-factor precedent). NodeID is required; Load returns
// terrors.ErrConfig if it cannot be determined.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("TROUGH_CONFIG_FILE"); path != "" {
		if err := overlayYAML(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	overlayEnv(&cfg)

	if cfg.NodeID == "" {
		return Config{}, fmt.Errorf("%w: node id not set (TROUGH_NODE_ID or node_id in config file)", terrors.ErrConfig)
	}
	return cfg, nil
}

func overlayYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read config file %s: %v", terrors.ErrConfig, path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: parse config file %s: %v", terrors.ErrConfig, path, err)
	}
	return nil
}

func overlayEnv(cfg *Config) {
	cfg.StoreDSN = getenv("TROUGH_STORE_DSN", cfg.StoreDSN)
	cfg.StoreBoltPath = getenv("TROUGH_STORE_BOLT_PATH", cfg.StoreBoltPath)
	cfg.BulkStoreURL = getenv("TROUGH_BULK_STORE_URL", cfg.BulkStoreURL)
	cfg.SegmentRoot = getenv("TROUGH_LOCAL_SEGMENT_ROOT", cfg.SegmentRoot)
	cfg.ElectionCycle = getenvDuration("TROUGH_ELECTION_CYCLE", cfg.ElectionCycle)
	cfg.SyncCycle = getenvDuration("TROUGH_SYNC_CYCLE", cfg.SyncCycle)
	cfg.DefaultTTL = getenvDuration("TROUGH_SERVICE_TTL", cfg.DefaultTTL)
	cfg.HTTPAddr = getenv("TROUGH_HTTP_ADDR", cfg.HTTPAddr)
	cfg.SyncPort = getenvInt("TROUGH_SYNC_PORT", cfg.SyncPort)
	cfg.ReadPort = getenvInt("TROUGH_READ_PORT", cfg.ReadPort)
	cfg.WritePort = getenvInt("TROUGH_WRITE_PORT", cfg.WritePort)
	cfg.MetricsAddr = getenv("TROUGH_METRICS_ADDR", cfg.MetricsAddr)
	cfg.LogLevel = getenv("TROUGH_LOG_LEVEL", cfg.LogLevel)
	cfg.LogJSON = getenvBool("TROUGH_LOG_JSON", cfg.LogJSON)
	cfg.NodeID = getenv("TROUGH_NODE_ID", cfg.NodeID)
}

// getenv retrieves an environment variable with a default fallback
// value, returning def when the variable is unset or empty.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getenvBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
