// Command ferry uploads files to GoFile.
package main

import (
	"os"

	"github.com/meigma/ferry/cmd/ferry/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
