// Command rip resolves a set of PEP 508 requirements against a PEP
// 503/691 simple package index and prints the resulting environment.
//
// Grounded on original_source's rip::main (stdout format, --index-url
// trailing-slash normalization, exit 0 on unsatisfiable resolution) and on
// deps.dev/examples/go/resolve/main.go's CLI conventions (log.SetFlags(0),
// plain flag-package argument parsing, text/tabwriter for tabular output).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/tdejager/rip/internal/resolve"
)

func main() {
	log.SetFlags(0)

	indexURL := flag.String("index-url", "https://pypi.org/simple/", "Base URL of the Python Package Index (PEP 503 simple repository API)")
	flag.Usage = func() {
		log.Printf("Usage: %s [--index-url URL] <spec>...", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	specs := flag.Args()
	if len(specs) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	url := *indexURL
	if !strings.HasSuffix(url, "/") {
		url += "/"
	}

	res, err := resolve.Resolve(context.Background(), specs, resolve.Options{IndexURL: url})
	if err != nil {
		log.Fatal(err)
	}

	if res.Conflict != nil {
		fmt.Fprintf(os.Stderr, "Could not solve:\n%s\n", res.Conflict.Error())
		return
	}

	bold := color.New(color.Bold)
	fmt.Println(bold.Sprint("Resolved environment") + ":")
	for _, r := range res.Roots {
		fmt.Printf("- %s\n", r.String())
	}
	fmt.Println()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", bold.Sprint("Name"), bold.Sprint("Version"))
	for _, p := range res.Packages {
		fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.Version.Canon())
	}
	tw.Flush()
}
