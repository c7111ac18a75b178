package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// best effort, real environment variables win
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
