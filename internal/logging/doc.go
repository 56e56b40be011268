// Package logging exposes a simple zap logger constructor with log levels.
package logging
