// Package logging provides Trough's structured logging: a package-level
// rs/zerolog Logger initialized once from config.Config, plus a handful
// of WithX helpers for tagging child loggers handed to each controller.
//
// The master controller logs at Info each time HoldElection succeeds and
// each time a segment gets new copies, and at Debug when a tick finds it
// is not leader or is still waiting for hosts. Write-lock acquisition
// and routine heartbeats are not logged. Errors are attached via .Err(err) rather
// than formatted into the message string, so they survive structured
// (JSON) output intact.
//
// # See Also
//
// internal/config: the source of the Config passed to Init.
// internal/master, internal/local: the controllers that take a
// zerolog.Logger built here at construction time.
package logging
