// Package main writes pdt's CLI reference as markdown pages or man pages.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/donaldgifford/price-drop-tracker/cmd/pdt/cmd"
)

func main() {
	output := flag.String("output", "docs/cli", "output directory")
	format := flag.String("format", "markdown", "output format (markdown, man)")
	flag.Parse()

	if err := os.MkdirAll(*output, 0o750); err != nil {
		log.Fatalf("creating output directory: %v", err)
	}

	if err := generate(cmd.Root(), *format, *output); err != nil {
		log.Fatalf("generating docs: %v", err)
	}
	fmt.Printf("CLI docs (%s) generated in %s/\n", *format, *output)
}

func generate(root *cobra.Command, format, dir string) error {
	root.DisableAutoGenTag = true

	switch format {
	case "markdown":
		return doc.GenMarkdownTree(root, dir)
	case "man":
		return doc.GenManTree(root, &doc.GenManHeader{
			Title:   "PDT",
			Section: "1",
			Source:  "price-drop-tracker",
		}, dir)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
