// Package commands defines the huddle probe CLI: a signaling-only client
// for poking at a running server from the terminal.
package commands
