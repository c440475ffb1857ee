// Command gen-manpages writes reference documentation for every stepper
// command. Man pages are the default; -markdown writes one markdown file per
// command instead.
//
// Usage:
//
//	go run ./scripts/gen-manpages [-markdown] [output-dir]
//
// The default output directory is "man/man1" for man pages and "docs/cli"
// for markdown.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra/doc"

	"github.com/AbdelazizMoustafa10m/stepper/internal/buildinfo"
	"github.com/AbdelazizMoustafa10m/stepper/internal/cli"
)

func main() {
	markdown := flag.Bool("markdown", false, "write markdown instead of man pages")
	flag.Parse()

	outDir := "man/man1"
	if *markdown {
		outDir = "docs/cli"
	}
	if flag.NArg() > 0 {
		outDir = flag.Arg(0)
	}

	if err := generate(outDir, *markdown); err != nil {
		fmt.Fprintf(os.Stderr, "gen-manpages: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Reference pages written to %s/\n", outDir)
}

func generate(outDir string, markdown bool) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", outDir, err)
	}

	root := cli.NewRootCmd()
	root.DisableAutoGenTag = true

	if markdown {
		if err := doc.GenMarkdownTree(root, outDir); err != nil {
			return fmt.Errorf("generating markdown: %w", err)
		}
		return nil
	}

	info := buildinfo.GetInfo()
	header := &doc.GenManHeader{
		Title:   "STEPPER",
		Section: "1",
		Source:  "stepper " + info.Version,
		Manual:  "Stepper Manual",
		Date:    buildDate(info.Date),
	}
	if err := doc.GenManTree(root, header, outDir); err != nil {
		return fmt.Errorf("generating man pages: %w", err)
	}
	return nil
}

// buildDate parses the ldflags build date; man pages fall back to today.
func buildDate(s string) *time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	now := time.Now()
	return &now
}
