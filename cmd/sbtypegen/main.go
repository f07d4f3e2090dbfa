// Package main provides the sbtypegen CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/leapstack-labs/sbtypegen/internal/cli"
)

func main() {
	// .env is optional; variables already in the environment win.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
