// Package notifications delivers session events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Enumerated event
// types cover session completion, failure and a connectivity test so the
// controller and CLI emit consistent messages without duplicating HTTP glue.
package notifications
