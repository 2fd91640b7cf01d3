// Package timeline models the ordered list of tool events detected in a
// processed video together with the aggregates shown next to it.
//
// Events are ordered by non-decreasing frame. A Timeline is built once
// when processing completes and is never edited afterwards; callers replace
// it wholesale.
package timeline
