package main

import (
	"os"

	"github.com/leadpilot/leadpilot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
