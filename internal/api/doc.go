// Package api implements the HTTP REST API and WebSocket server for the
// device space visualiser.
//
// This package provides:
//   - REST endpoints for devices, connections, labels and drag gestures
//   - accessory provisioning and raw board output ingestion
//   - status history queries backed by SQLite
//   - a WebSocket hub that streams device renders and connector overlays
//   - middleware (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The space model is single-threaded. Every handler that reads or changes
// it submits a closure to space.Loop and waits for the result, so HTTP
// goroutines never touch devices directly. The Hub is registered as the
// Manager's Renderer and the layout engine's Canvas; draw calls made on the
// loop become WebSocket broadcasts.
//
// # Channels
//
// Clients subscribe to any of: device.render, device.zoom, space.resize,
// space.lines, space.event, remote.output. A client may also send a
// "resize" message carrying its container size, which feeds the debounced
// layout relayout.
package api
