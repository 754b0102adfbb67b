// Package metrics declares Trough's Prometheus collectors and the HTTP
// handler that serves them.
//
// Collectors are registered once at package init, mirroring the
// corpus's collector-package convention: callers import metrics and
// call the package-level vars directly (HostsTotal.WithLabelValues(...))
// rather than threading a registry handle through every constructor.
// Handler() is mounted on config.Config's METRICS_ADDR by each cmd/
// entry point, on its own listener separate from the controller's main
// HTTP surface.
//
// # See Also
//
// cmd/trough-sync-master, cmd/trough-sync-local: mount Handler. No
// package in this module updates the collectors; internal/master and
// internal/local do not import this package.
package metrics
