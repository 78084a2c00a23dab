// Package main provides ewctl, the administrative CLI of the Elementor WhatsApp relay.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	if err := newApp(os.Stdout).command().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
