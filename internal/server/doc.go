// Package server provides the local status API for PulseDeck.
//
// The server is optional and only started when a status port is configured.
// It exposes the endpoint registry to tools running on the same machine:
//
//   - Status page: the embedded HTML page at "/"
//   - REST API: "/api/endpoints" for the current snapshot, and
//     DELETE "/api/endpoints/{key}" to drop a record
//   - Server-Sent Events: record changes at "/api/sse"
//   - Metrics: Prometheus exposition at "/metrics"
//
// The listener binds to loopback only. The server supports graceful shutdown
// via context cancellation, with a 5-second timeout for in-flight requests.
package server
