// Package main is the entry point for the pdt CLI client.
package main

import (
	"github.com/donaldgifford/price-drop-tracker/cmd/pdt/cmd"
)

func main() {
	cmd.Execute()
}
