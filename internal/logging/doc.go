// Package logging assembles structured slog loggers and formatting helpers
// used across SurgiTrack.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so controller and progress code
// automatically tag log lines with the session id, stage and correlation id.
// A bounded StreamHub keeps recent events for the local status API. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
