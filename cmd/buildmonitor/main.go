// Command buildmonitor crawls a Jenkins-style CI root and advertises the
// resulting project list to peers over multicast or unicast query, and
// can run as a peer itself to watch and claim broken builds.
package main

import (
	"fmt"
	"os"

	"github.com/xsparkiex/buildmonitor/cmd/buildmonitor/commands"
)

func main() {
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
