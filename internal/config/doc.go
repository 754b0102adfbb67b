// Package config builds a Config from environment variables, optionally
// layered under a YAML file.
//
// # Overview
//
// Load starts from a fixed set of defaults, overlays
// TROUGH_CONFIG_FILE's YAML contents if that env var is set, then
// overlays environment variables on top of that — env vars always win,
// matching twelve-factor precedent and the getenv-with-default
// convention every cmd/ entry point in the corpus already uses. Load
// returns a Config value; each cmd/ entry point passes its individual
// fields (node id, ports, TTLs, paths) to constructors such as
// internal/master.New and internal/local.New. Nothing reads the
// environment outside this package.
//
// # See Also
//
// internal/terrors: ErrConfig, returned when node id cannot be
// determined from either source.
package config
