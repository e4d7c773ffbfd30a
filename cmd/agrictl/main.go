// Command agrictl runs the advisory pipeline from a terminal: ask a question,
// build the document index, generate a guide or look up market prices.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "agrictl: %v\n", err)
		os.Exit(1)
	}
}
