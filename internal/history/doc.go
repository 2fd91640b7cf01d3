// Package history keeps a local SQLite ledger of finished submission
// sessions.
//
// Each terminal session is written once with its file, remote identifiers,
// step statuses and timeline so the CLI can list past runs. The ledger is
// read-only from the controller's point of view: sessions are never resumed
// from it. Schema changes ship as embedded goose migrations.
package history
