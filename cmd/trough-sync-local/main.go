// Package main implements trough-sync-local, the per-host agent that
// materializes assigned segments from the bulk store onto local disk
// and serves them to readers and writers.
//
// Every host in the cluster runs one instance. It heartbeats its
// trough-nodes row, reconciles local disk against its assignments on
// internal/local.Controller.Run's ticker, and exposes an HTTP endpoint
// trough-sync-master calls to request a segment be provisioned for
// writing.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/dreamware/trough/internal/bulk"
	"github.com/dreamware/trough/internal/changefeed"
	"github.com/dreamware/trough/internal/cluster"
	"github.com/dreamware/trough/internal/config"
	"github.com/dreamware/trough/internal/lock"
	"github.com/dreamware/trough/internal/local"
	"github.com/dreamware/trough/internal/logging"
	"github.com/dreamware/trough/internal/metrics"
	"github.com/dreamware/trough/internal/registry"
	"github.com/dreamware/trough/internal/store"
)

// defaultSchema is applied to a segment's SQLite file the first time it
// is provisioned for writing on a host that has never held it before.
const defaultSchema = `CREATE TABLE IF NOT EXISTS trough_meta (key TEXT PRIMARY KEY, value TEXT);`

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init(logging.Config{Level: logging.ErrorLevel, JSON: false})
		logging.Logger.Fatal().Err(err).Msg("load config")
	}

	logging.Init(logging.Config{
		Level: logging.Level(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	log := logging.WithComponent("trough-sync-local")

	st, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open coordination store")
	}
	if closer, ok := st.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	reg := registry.New(st)
	lk := lock.New(st)
	bs := openBulkStore(cfg)

	ctrl := local.New(cfg.NodeID, cfg.ReadPort, cfg.SegmentRoot, cfg.DefaultTTL, defaultSchema, reg, lk, bs, availableBytes(cfg.SegmentRoot), log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx, cfg.SyncCycle)
	go maintainChangeFeed(ctx, ctrl, reg, cfg.SyncCycle, log)

	router := newRouter(ctrl, cfg)
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("trough-sync-local listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info().Msg("trough-sync-local stopped")
}

func openStore(cfg config.Config) (store.Store, error) {
	if cfg.StoreBoltPath == "" {
		return store.NewMemStore(), nil
	}
	return store.NewBoltStore(cfg.StoreBoltPath)
}

func openBulkStore(cfg config.Config) bulk.Store {
	if cfg.BulkStoreURL == "" {
		return bulk.NewLocalStore(cfg.SegmentRoot)
	}
	return bulk.NewWebHDFSStore(cfg.BulkStoreURL, "/")
}

// maintainChangeFeed discovers the current trough-sync-master from the
// coordination store (there's no separate address to configure — the
// store already tracks who holds the role) and keeps a changefeed
// subscription to it alive. When the connection drops it redials at
// once; when no master is elected or the dial fails it waits one
// interval before trying again. ListenChangeFeed
// is an acceleration path only: Run's poll ticker reconciles regardless
// of whether this loop ever successfully connects.
func maintainChangeFeed(ctx context.Context, ctrl *local.Controller, reg *registry.HostRegistry, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		hosts, err := reg.GetHosts("trough-sync-master")
		if err != nil || len(hosts) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				continue
			}
		}

		master := hosts[0]
		url := fmt.Sprintf("ws://%s:%d/changefeed", master.Node, master.Port)
		sub, err := changefeed.Dial(ctx, url)
		if err != nil {
			log.Debug().Err(err).Str("master", master.Node).Msg("changefeed dial failed, will retry")
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				continue
			}
		}

		ctrl.ListenChangeFeed(ctx, sub)
		sub.Close()

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// availableBytes returns a closure reporting free space on the
// filesystem backing root, via statfs. It reports 0 on platforms or
// paths where the syscall fails rather than erroring the caller.
func availableBytes(root string) func() int64 {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		return func() int64 { return 0 }
	}
	return func() int64 {
		var stat syscall.Statfs_t
		if err := syscall.Statfs(root, &stat); err != nil {
			return 0
		}
		return int64(stat.Bavail) * int64(stat.Bsize)
	}
}

func newRouter(ctrl *local.Controller, cfg config.Config) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	r.HandleFunc("/info", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"node":         cfg.NodeID,
			"read_port":    cfg.ReadPort,
			"write_port":   cfg.WritePort,
			"segment_root": cfg.SegmentRoot,
		})
	}).Methods(http.MethodGet)

	r.HandleFunc("/segment/{id}/query", func(w http.ResponseWriter, req *http.Request) {
		id := mux.Vars(req)["id"]
		q := req.URL.Query().Get("sql")
		if q == "" {
			http.Error(w, "missing sql query parameter", http.StatusBadRequest)
			return
		}
		rows, err := ctrl.Query(req.Context(), id, q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, rows)
	}).Methods(http.MethodGet)

	r.HandleFunc("/segment/{id}/exec", func(w http.ResponseWriter, req *http.Request) {
		id := mux.Vars(req)["id"]
		body, err := io.ReadAll(req.Body)
		if err != nil || len(body) == 0 {
			http.Error(w, "missing request body", http.StatusBadRequest)
			return
		}
		affected, err := ctrl.Exec(req.Context(), id, string(body))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]int64{"rows_affected": affected})
	}).Methods(http.MethodPost)

	r.HandleFunc("/sync/segment/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := mux.Vars(req)["id"]
		if err := ctrl.ProvisionWritableSegment(req.Context(), id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writerURL := fmt.Sprintf("http://%s:%d/?segment=%s", cfg.NodeID, cfg.WritePort, id)
		writeJSON(w, cluster.ProvisionResponse{WriterURL: writerURL})
	}).Methods(http.MethodPost)

	r.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		var body cluster.ProvisionRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Segment == "" {
			http.Error(w, "missing segment in request body", http.StatusBadRequest)
			return
		}
		if err := ctrl.ProvisionWritableSegment(req.Context(), body.Segment); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writerURL := fmt.Sprintf("http://%s:%d/?segment=%s", cfg.NodeID, cfg.WritePort, body.Segment)
		writeJSON(w, cluster.ProvisionResponse{WriterURL: writerURL})
	}).Methods(http.MethodPost)

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
