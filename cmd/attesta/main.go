// Command attesta checks financial documents against compliance
// checklists from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/attesta-labs/attesta-cli/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
