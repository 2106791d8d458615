// Command structured-agent runs, type-checks, or serves an ACP session
// over a program written in the language this module implements.
package main

import (
	"fmt"
	"os"

	"github.com/wigmorewelsh/structured-agent/cmd/structured-agent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
