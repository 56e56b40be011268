package main

import (
	"os"

	"huddle/cmd/huddled/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
