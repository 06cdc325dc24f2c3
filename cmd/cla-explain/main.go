// Command cla-explain is a small diagnostic tool for member paths: it parses
// a "Namespace::Instance.Member[.Sub]" path, prints the derived matching
// labels, and verifies the recompose round-trip invariant.
package main

import (
	"fmt"
	"os"

	"github.com/distcla/cla/internal/path"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "path":
		if err := runPath(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "cla-explain path: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "cla-explain: unknown command %q\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: cla-explain <command> [args]

Commands:
  path <full-path>   Parse a member path and print its derived labels
`)
}

func runPath(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one path argument")
	}
	full := args[0]

	m, err := path.Parse(full)
	if err != nil {
		return err
	}
	labels, err := path.DeriveLabels(full)
	if err != nil {
		return err
	}

	fmt.Printf("namespace:       %s\n", m.Namespace)
	fmt.Printf("instance:        %s\n", m.Instance)
	fmt.Printf("topic:           %s\n", labels.Topic)
	fmt.Printf("virtualNetwork:  %s\n", labels.VirtualNetwork)
	fmt.Printf("canonicalName:   %s\n", labels.CanonicalName)

	recomposed := m.Recompose()
	if recomposed != full {
		return fmt.Errorf("round-trip invariant violated: recompose(%q) = %q", full, recomposed)
	}
	fmt.Printf("round-trip:      ok\n")
	return nil
}
