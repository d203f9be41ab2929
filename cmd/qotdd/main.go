// The qotdd command runs a Quote of the Day Protocol (RFC 865) server:
// every TCP connection and every UDP datagram on the bound port is
// answered with one randomly selected quote from a directory of
// plain-text quote files.
package main

import (
	"os"

	"github.com/dreamware/qotd/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
