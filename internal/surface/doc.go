// Package surface connects PulseDeck to the control-surface host.
//
// The host launches the plugin with a local websocket port and a plugin
// UUID. After registering, the plugin receives per-button lifecycle events
// as JSON text frames and answers with visual actions:
//
//	host -> plugin: willAppear, willDisappear, didReceiveSettings, keyDown
//	plugin -> host: showAlert, showOk, openUrl
//
// Outbound actions never block the caller. They are queued and written by a
// single writer goroutine, because a websocket connection supports only one
// concurrent writer.
package surface
