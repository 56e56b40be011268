// Package config loads server configuration from a YAML file, HUDDLE_*
// environment variables, and built-in defaults, in increasing precedence of
// defaults < file < environment.
package config
