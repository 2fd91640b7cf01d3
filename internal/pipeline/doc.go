// Package pipeline models the fixed six-stage analysis pipeline a submitted
// video moves through: upload, validate, extract, detect, track, complete.
//
// Steps is an immutable value. Advance only accepts the transition that
// matches the current stage (the first step that is not completed) and
// returns a new Steps; out-of-order or illegal changes are rejected with the
// sentinel errors in this package. A step in error halts the pipeline until
// the whole set is replaced by NewSteps.
package pipeline
