package server

import (
	"errors"
	"fmt"
	"log"
	"net"

	"github.com/dreamware/qotd/internal/quotes"
)

// ErrNotBound is returned by Serve when Bind has not succeeded first.
var ErrNotBound = errors.New("server is not bound to an address")

// maxUDPQuoteLen is the safe UDP payload limit: quotes at or above
// this size are never sent over UDP and a new one is chosen instead.
const maxUDPQuoteLen = 512

// verbose gates the per-connection chatter; errors and startup output
// are always logged.
var verbose bool

// SetVerbose enables per-connection informational logging.
func SetVerbose(v bool) { verbose = v }

func debugf(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

// Server answers TCP connections and UDP datagrams on one shared port
// with a single quote each, per RFC 865. Lifecycle: New → Bind →
// Serve; Serve only returns once the broker dies or Close is called.
type Server struct {
	tcp net.Listener
	udp *net.UDPConn
}

// New creates an unbound server.
func New() *Server { return &Server{} }

// Bind opens the TCP listener first, reads back its resolved local
// address, and binds the UDP socket to that exact address — so a ":0"
// request still lands both protocols on the same port number. Either
// bind failing (address in use, missing privileges for ports < 1024)
// is returned to the caller and is fatal to startup.
func (s *Server) Bind(addr string) error {
	tcp, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding TCP %s: %w", addr, err)
	}
	debugf("bound to TCP %s", tcp.Addr())

	udpAddr, err := net.ResolveUDPAddr("udp", tcp.Addr().String())
	if err != nil {
		tcp.Close()
		return fmt.Errorf("resolving local address %s: %w", tcp.Addr(), err)
	}
	udp, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		tcp.Close()
		return fmt.Errorf("binding UDP %s: %w", udpAddr, err)
	}
	debugf("bound to UDP %s", udp.LocalAddr())

	s.tcp = tcp
	s.udp = udp
	return nil
}

// Addr returns the resolved address both sockets are bound to, or nil
// before a successful Bind.
func (s *Server) Addr() net.Addr {
	if s.tcp == nil {
		return nil
	}
	return s.tcp.Addr()
}

// Serve starts the quote broker over the given corpus, then accepts
// TCP connections and UDP datagrams until the broker dies or Close is
// called. Each connection and each datagram is handled in its own
// goroutine, so a stalled client on one protocol never delays the
// other or subsequent clients.
//
// Serve returns the broker's fatal error when the broker has failed
// (the caller should exit non-zero: no quote can ever be served
// again), or nil after an orderly Close.
func (s *Server) Serve(corpus *quotes.Corpus) error {
	if s.tcp == nil || s.udp == nil {
		return ErrNotBound
	}

	broker := NewBroker(corpus)
	broker.Start()
	defer broker.Stop()

	log.Printf("now listening on TCP/UDP %s", s.tcp.Addr())

	loopErr := make(chan error, 2)
	go func() { loopErr <- s.acceptTCP(broker) }()
	go func() { loopErr <- s.receiveUDP(broker) }()

	var err error
	select {
	case <-broker.Done():
		err = broker.Err()
	case err = <-loopErr:
	}

	// Stop accepting new work before reporting; handlers already in
	// flight finish (or fail) on their own.
	s.tcp.Close()
	s.udp.Close()
	return err
}

// Close shuts both sockets down, unblocking the accept and receive
// loops and making Serve return nil.
func (s *Server) Close() {
	if s.tcp != nil {
		s.tcp.Close()
	}
	if s.udp != nil {
		s.udp.Close()
	}
}

// acceptTCP accepts connections until the listener closes. A genuine
// accept failure is fatal to the serve loop, matching the startup
// errors in severity: the listener is no longer usable.
func (s *Server) acceptTCP(broker *Broker) error {
	for {
		conn, err := s.tcp.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accepting TCP client: %w", err)
		}
		debugf("TCP client connected: %s", conn.RemoteAddr())
		go handleTCP(conn, broker)
	}
}

// handleTCP serves one TCP client: one quote, then close. No bytes are
// ever read from the client. Failures are logged and abort only this
// connection.
func handleTCP(conn net.Conn, broker *Broker) {
	defer conn.Close()

	quote, err := broker.Get()
	if err != nil {
		log.Printf("tcp %s: %v", conn.RemoteAddr(), err)
		return
	}
	if _, err := conn.Write(quote); err != nil {
		log.Printf("tcp %s: sending quote: %v", conn.RemoteAddr(), err)
		return
	}
	debugf("served quote to TCP %s", conn.RemoteAddr())
}

// receiveUDP waits for datagrams until the socket closes. The payload
// is ignored — any datagram, even an empty one, triggers a reply — so
// a one-byte buffer is all we read into.
func (s *Server) receiveUDP(broker *Broker) error {
	buf := make([]byte, 1)
	for {
		_, addr, err := s.udp.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("receiving UDP datagram: %w", err)
		}
		debugf("UDP client connected: %s", addr)
		go s.handleUDP(addr, broker)
	}
}

// handleUDP serves one UDP client: request quotes until one fits in a
// single safe datagram, then send it. There is no bound on the retry
// loop; a corpus containing only oversized quotes would keep this
// handler selecting forever, which matches the reference policy.
func (s *Server) handleUDP(addr *net.UDPAddr, broker *Broker) {
	for {
		quote, err := broker.Get()
		if err != nil {
			log.Printf("udp %s: %v", addr, err)
			return
		}
		if len(quote) < maxUDPQuoteLen {
			if _, err := s.udp.WriteToUDP(quote, addr); err != nil {
				log.Printf("udp %s: sending quote: %v", addr, err)
				return
			}
			debugf("served quote to UDP %s", addr)
			return
		}
		debugf("quote too long for UDP client (%d bytes), retrying", len(quote))
	}
}
