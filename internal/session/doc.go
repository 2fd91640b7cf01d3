// Package session holds the immutable state of one submission run and the
// reducer that moves it forward.
//
// State is a value. Every change is expressed as an Action and applied with
// Apply, which returns a new State and never modifies its input. Each State
// carries a generation number; actions stamped with an older generation are
// rejected so that callbacks from a reset session cannot leak into the next.
package session
