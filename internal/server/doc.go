// Package server exposes the HTTP surface: the /ws signaling endpoint,
// /healthz, and /metrics, with graceful shutdown of rooms and sessions.
package server
