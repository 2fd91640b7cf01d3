// Package preflight provides readiness checks for the local directories and
// remote services SurgiTrack depends on, plus the optional upload
// constraint check applied before a file is submitted.
//
// These checks run in two contexts:
//   - The CLI "surgitrack health" command runs RunAll and renders the results.
//   - The submission controller calls CheckUpload when
//     [upload] enforce_constraints is on.
//
// Each check is gated by its config toggle; disabled features are reported
// but never fail.
package preflight
