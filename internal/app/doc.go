// Package app wires application dependencies for the server binary.
//
// It builds the logger, metrics, media engine, room registry and HTTP
// server from Config, exposing them via the Wire struct for commands to
// use.
package app
