// The qotd-client command fetches one quote from a QOTD server and
// prints it, over UDP by default or TCP with -tcp.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/dreamware/qotd/internal/client"
)

func main() {
	tcp := flag.Bool("tcp", false, "use TCP instead of UDP")
	port := flag.Int("port", 17, "port number to connect to")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: qotd-client [options] <IP or HOSTNAME>\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	addr := net.JoinHostPort(flag.Arg(0), strconv.Itoa(*port))

	var quote []byte
	var err error
	if *tcp {
		quote, err = client.FetchTCP(addr)
	} else {
		quote, err = client.FetchUDP(addr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(strings.TrimRight(string(quote), " \t\r\n"))
}
