// Package client provides a WebSocket client for the huddle signaling
// protocol, used by the probe CLI and integration tests.
//
// It covers the signaling-only surface: joining a room, watching events,
// presence and echo. It does not negotiate media.
package client
