// Package poller decides when monitored endpoints are checked and drives the
// two periodic loops of PulseDeck.
//
// The main components are:
//
//   - [Scheduler]: selects due endpoints and dispatches checks concurrently
//   - [Driver]: owns the poll loop (network checks) and the alert loop
//     (re-asserting the alert visual on offline endpoints)
//   - [Force]: override that makes an endpoint due regardless of timing
//
// The scheduler never blocks on a check. Each check runs in its own
// goroutine and reports back through the registry, which serialises the
// resulting state change and any visual notification.
package poller
