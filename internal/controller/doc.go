// Package controller orchestrates one submission session at a time.
//
// A Controller owns the current session.State. SubmitFile uploads the
// selected video, requests processing and hands the returned job to a
// progress.Source whose ticks are folded back into the state. Every change
// goes through session.Apply under one mutex, stamped with the generation
// it was started under, so callbacks from a session that was Reset are
// rejected instead of leaking into the next one.
//
// Observers read immutable snapshots via Snapshot, Subscribe or Wait.
// Terminal sessions are handed to the optional Recorder and Notifier.
package controller
