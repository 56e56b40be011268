// Package commands defines the huddled server CLI.
package commands
