// Package statusapi exposes the running session over local HTTP.
//
// The gin router serves a health check, the current session snapshot,
// submit and reset actions, recent log events from the logging.StreamHub
// and the history ledger. It binds to the loopback address configured in
// [status_api] and is started by `surgitrack serve`.
package statusapi
