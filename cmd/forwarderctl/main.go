// Command forwarderctl deploys the forwarder to a simulated chain and
// submits calls through it. State is kept in a TOML file between runs.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
