package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Optional .env next to the working directory; real config comes from
	// the YAML file and the OS keychain.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
