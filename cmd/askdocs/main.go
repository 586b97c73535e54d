// Package main is the entry point for the askdocs server.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/kart-io/askdocs/cmd/askdocs/app"
)

func main() {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	if err := app.NewServerCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
