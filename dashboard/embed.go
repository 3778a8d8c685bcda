// Package dashboard provides the embedded status page for PulseDeck.
//
// The page is served by the status server at "/" and renders the endpoint
// records live from the "/api/sse" stream.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the status page.
//
//	assets/
//	  index.html    - status page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
