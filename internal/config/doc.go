// Package config loads, normalizes, and validates SurgiTrack configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment overrides such as SURGITRACK_BASE_URL.
// The Config type centralizes every knob the CLI and status server need:
// the remote service address, progress timing, upload preflight limits, the
// run history ledger, notifications, and log output.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config
