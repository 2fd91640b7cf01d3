// Package progress reports how far a remote processing job has advanced.
//
// A Source runs under a context owned by the submission session and emits
// stage ticks: tick 1 when frame extraction finishes, tick 2 when detection
// finishes and tick 3 when tracking finishes, together with the resulting
// timeline. Cancelling the context stops a source without emitting further
// ticks.
package progress
