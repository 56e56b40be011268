// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (IDs, media kinds, codec capabilities, room events)
// and contracts (media-layer interfaces) only.
package domain
