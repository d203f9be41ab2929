// Package client provides the small typed fetch helpers shared by the
// qotd-client binary and the test suites: one quote over TCP, one
// quote over UDP.
package client

import (
	"fmt"
	"io"
	"net"
	"time"
)

// fetchTimeout bounds one whole client exchange; the server itself has
// no timeouts, but a client should not hang forever on a dead address.
const fetchTimeout = 5 * time.Second

// FetchTCP connects to a QOTD server and reads one quote. The server
// writes the quote and closes the connection, so reading to EOF is the
// entire protocol.
func FetchTCP(addr string) ([]byte, error) {
	conn, err := net.DialTimeout("tcp", addr, fetchTimeout)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(fetchTimeout))

	quote, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("reading quote: %w", err)
	}
	return quote, nil
}

// FetchUDP sends one empty datagram to a QOTD server — the content is
// ignored, but with no handshake something has to open the exchange —
// and returns the single reply datagram, which is always under 512
// bytes.
func FetchUDP(addr string) ([]byte, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(fetchTimeout))

	if _, err := conn.Write([]byte{}); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	buf := make([]byte, 512)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("reading quote: %w", err)
	}
	return buf[:n], nil
}
