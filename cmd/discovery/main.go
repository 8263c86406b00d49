// Package main is the entry point of the discovery service.
package main

import (
	"os"

	"github.com/kailas-cloud/discovery/cmd/discovery/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
