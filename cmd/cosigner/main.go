package main

import (
	"os"

	"cosigner/cmd/cosigner/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
