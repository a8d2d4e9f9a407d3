package main

import (
	"os"

	"github.com/wonny/hedgestress/cmd/stress/commands"
)

// main is the entry point for the hedge stress CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/stress [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
