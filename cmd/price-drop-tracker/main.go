// Package main is the entry point for the price-drop-tracker server.
package main

import (
	"os"

	"github.com/donaldgifford/price-drop-tracker/cmd/price-drop-tracker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
