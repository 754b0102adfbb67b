// Package main implements trough-sync-master, the elected coordinator
// that enumerates the bulk store, plans segment-to-host assignment, and
// arbitrates writable-segment requests for the cluster.
//
// The process runs three things concurrently: an HTTP API for read-only
// queries and writable-segment provisioning, a metrics listener, and
// internal/master.Controller.Run's election/assign ticker loop. Every
// host in the cluster should run this binary; exactly one will hold the
// trough-sync-master role at a time, the rest idle until its heartbeat
// lapses.
//
// Configuration is entirely environment-driven; see internal/config.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/dreamware/trough/internal/bulk"
	"github.com/dreamware/trough/internal/changefeed"
	"github.com/dreamware/trough/internal/config"
	"github.com/dreamware/trough/internal/lock"
	"github.com/dreamware/trough/internal/logging"
	"github.com/dreamware/trough/internal/master"
	"github.com/dreamware/trough/internal/metrics"
	"github.com/dreamware/trough/internal/registry"
	"github.com/dreamware/trough/internal/segment"
	"github.com/dreamware/trough/internal/store"
)

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
	log := logging.WithComponent("trough-sync-master")

	nodeID := cfg.NodeID
	if nodeID == "" {
		nodeID = uuid.NewString()
	}

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

	ctrl := master.New(nodeID, cfg.WritePort, cfg.SyncPort, cfg.DefaultTTL*3, reg, lk, bs, log)

	feed := changefeed.NewHub(log)
	ctrl.SetChangeFeed(feed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)
	go ctrl.Run(ctx, cfg.ElectionCycle, 1)

	router := newRouter(ctrl, reg, lk, feed)
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
		log.Info().Str("addr", cfg.HTTPAddr).Msg("trough-sync-master listening")
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
	log.Info().Msg("trough-sync-master stopped")
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

func newRouter(ctrl *master.Controller, reg *registry.HostRegistry, lk *lock.Lock, feed *changefeed.Hub) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	r.HandleFunc("/hosts", func(w http.ResponseWriter, req *http.Request) {
		role := req.URL.Query().Get("role")
		if role == "" {
			role = "trough-nodes"
		}
		hosts, err := reg.GetHosts(role)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, hosts)
	}).Methods(http.MethodGet)

	r.HandleFunc("/segments/{id}/copies", func(w http.ResponseWriter, req *http.Request) {
		id := mux.Vars(req)["id"]
		seg := segment.New(id, "", reg, lk)
		copies, err := seg.AllCopies(req.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, copies)
	}).Methods(http.MethodGet)

	r.HandleFunc("/changefeed", func(w http.ResponseWriter, req *http.Request) {
		if err := feed.ServeWS(w, req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}).Methods(http.MethodGet)

	r.HandleFunc("/segments/{id}/provision", func(w http.ResponseWriter, req *http.Request) {
		id := mux.Vars(req)["id"]
		url, err := ctrl.ProvisionWritableSegment(req.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"writer_url": url})
	}).Methods(http.MethodPost)

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
