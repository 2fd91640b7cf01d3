// Command surgitrack submits surgical videos to the remote analysis service
// and reports the resulting tool-usage timeline.
//
// `surgitrack submit` runs one session in the foreground, rendering stage
// progress and the final timeline. `surgitrack serve` keeps a session
// controller behind the local status API. Supporting commands inspect the
// history ledger, render timeline files, check service health and manage
// the configuration file.
package main
