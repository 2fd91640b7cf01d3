// Package services defines shared utilities consumed by the submission
// controller and its remote integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, pipeline stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (transport, remote status, decode, validation) and reduce them to a
//     single human-readable message via Details.
//
// Use these helpers when wiring new remote calls so failures reach the
// session state with the same shape as the rest of the client.
package services
