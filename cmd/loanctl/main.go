package main

import (
	"os"

	"loan-engine/cmd/loanctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
