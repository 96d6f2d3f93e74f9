// Package main provides the metatensor CLI.
package main

import (
	"fmt"
	"os"

	"github.com/metatensor-ml/metatensor/config"
	"github.com/metatensor-ml/metatensor/meta"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("metatensor %s\n", version)
			return
		case "info":
			info()
			return
		}
	}

	fmt.Println("metatensor - metadata-carrying tensors for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  info       Show the effective tracking configuration")
}

func info() {
	path := os.Getenv("METATENSOR_CONFIG")
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		cfg.Apply()
	}
	fmt.Printf("track_meta:       %v\n", meta.TrackMeta())
	fmt.Printf("track_transforms: %v\n", meta.TrackTransforms())
	if path != "" {
		fmt.Printf("config:           %s\n", path)
	}
}
