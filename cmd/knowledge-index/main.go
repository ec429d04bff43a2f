// Command knowledge-index is the thin CLI entry point over the core:
// it wires internal/config, internal/source, internal/index,
// internal/search, internal/watch, internal/graph and internal/mcpcore
// together without adding any domain logic of its own.
package main

import (
	"fmt"
	"os"

	"github.com/urbanisierung/knowledge-index/cmd/knowledge-index/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
