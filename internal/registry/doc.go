// Package registry holds the monitored-endpoint records for PulseDeck.
//
// There is exactly one [Endpoint] per button key. Records survive hide/show
// cycles; reappearance updates configuration in place and rebinds the
// button's [Indicator] so that callbacks captured from an earlier appearance
// can never fire again.
//
// All mutations, and the indicator calls they trigger, happen under a single
// lock. This gives every record update-then-notify semantics: no other
// registry operation can observe the new state before the notification has
// been issued. [Indicator] implementations must therefore not block.
//
// Snapshots of changed records are published to subscribers with
// non-blocking sends; slow subscribers miss updates rather than stall checks.
package registry
