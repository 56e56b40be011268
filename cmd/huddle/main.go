package main

import (
	"os"

	"huddle/cmd/huddle/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
