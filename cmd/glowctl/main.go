package main

import (
	"os"

	"glow/cmd/glowctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
