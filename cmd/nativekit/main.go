// Command nativekit runs scripts against the nativekit wrappers on a
// desktop host.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/nativekit/cmd/nativekit/cmd"
)

func main() {
	if err := cmd.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
