// Package checker performs single-shot HTTP health probes for PulseDeck.
//
// A probe is one GET request with a hard deadline. Every failure mode
// (DNS, refused connection, TLS, timeout, unexpected status code) is folded
// into an unhealthy [Result]; nothing is returned as an error to the caller.
// The underlying cause is kept in [Result.Err] for logging and metrics.
package checker
