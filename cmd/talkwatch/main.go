// Command talkwatch watches a wiki talk page for discussion changes.
package main

import (
	"fmt"
	"os"

	"github.com/jwbth/talkwatch/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
