package server

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/qotd/internal/client"
	"github.com/dreamware/qotd/internal/quotes"
)

// startServer binds to an ephemeral port and serves the corpus in the
// background, returning the resolved address.
func startServer(t *testing.T, corpus *quotes.Corpus) string {
	t.Helper()
	srv := New()
	require.NoError(t, srv.Bind("127.0.0.1:0"))

	done := make(chan error, 1)
	go func() { done <- srv.Serve(corpus) }()
	t.Cleanup(func() {
		srv.Close()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return after Close")
		}
	})

	return srv.Addr().String()
}

func TestBindSharesPort(t *testing.T) {
	srv := New()
	require.NoError(t, srv.Bind("127.0.0.1:0"))
	defer srv.Close()

	tcpAddr := srv.tcp.Addr().(*net.TCPAddr)
	udpAddr := srv.udp.LocalAddr().(*net.UDPAddr)
	assert.NotZero(t, tcpAddr.Port)
	assert.Equal(t, tcpAddr.Port, udpAddr.Port, "TCP and UDP must share one port")
}

func TestBindFailsOnAddressInUse(t *testing.T) {
	first := New()
	require.NoError(t, first.Bind("127.0.0.1:0"))
	defer first.Close()

	second := New()
	assert.Error(t, second.Bind(first.Addr().String()))
}

func TestServeRequiresBind(t *testing.T) {
	corpus := buildTestCorpus(t, map[string]string{"f": "%\nA quote.\n%\n"})
	assert.ErrorIs(t, New().Serve(corpus), ErrNotBound)
}

func TestTCPRoundTrip(t *testing.T) {
	corpus := buildTestCorpus(t, map[string]string{
		"f": "%\nThe only quote.\n%\n",
	})
	addr := startServer(t, corpus)

	// The server writes exactly one quote and closes; reading to EOF
	// must yield exactly the quote's bytes, nothing more.
	quote, err := client.FetchTCP(addr)
	require.NoError(t, err)
	assert.Equal(t, "The only quote.\n", string(quote))
}

func TestTCPIgnoresClientBytes(t *testing.T) {
	corpus := buildTestCorpus(t, map[string]string{
		"f": "%\nThe only quote.\n%\n",
	})
	addr := startServer(t, corpus)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	// Anything the client sends is ignored.
	_, err = conn.Write([]byte("GET / HTTP/1.0\r\n\r\n"))
	require.NoError(t, err)

	buf := make([]byte, 1024)
	n, _ := conn.Read(buf)
	assert.Equal(t, "The only quote.\n", string(buf[:n]))
}

func TestUDPRoundTrip(t *testing.T) {
	corpus := buildTestCorpus(t, map[string]string{
		"f": "%\nThe only quote.\n%\n",
	})
	addr := startServer(t, corpus)

	quote, err := client.FetchUDP(addr)
	require.NoError(t, err)
	assert.Equal(t, "The only quote.\n", string(quote))
	assert.Less(t, len(quote), maxUDPQuoteLen)
}

func TestUDPEmptyDatagramTriggersReply(t *testing.T) {
	corpus := buildTestCorpus(t, map[string]string{
		"f": "%\nThe only quote.\n%\n",
	})
	addr := startServer(t, corpus)

	conn, err := net.Dial("udp", addr)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	_, err = conn.Write([]byte{})
	require.NoError(t, err)

	buf := make([]byte, maxUDPQuoteLen)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "The only quote.\n", string(buf[:n]))
}

func TestUDPRetriesOversizedQuotes(t *testing.T) {
	// One quote comfortably under the limit, one well over it: the
	// oversized quote must never reach a UDP client.
	big := "%\n"
	for i := 0; i < 60; i++ {
		big += "this line pads the quote well past the UDP limit\n"
	}
	big += "%\n"

	corpus := buildTestCorpus(t, map[string]string{
		"small": "%\nFits in a datagram.\n%\n",
		"big":   big,
	})
	addr := startServer(t, corpus)

	for i := 0; i < 10; i++ {
		quote, err := client.FetchUDP(addr)
		require.NoError(t, err)
		assert.Equal(t, "Fits in a datagram.\n", string(quote))
	}
}

func TestServeReturnsBrokerError(t *testing.T) {
	corpus := buildTestCorpus(t, map[string]string{"f": "%\nA quote.\n%\n"})
	corpus.Close()

	srv := New()
	require.NoError(t, srv.Bind("127.0.0.1:0"))
	defer srv.Close()

	// The broker's first speculative fetch fails, so Serve must return
	// its error instead of continuing to accept unanswerable clients.
	err := srv.Serve(corpus)
	require.Error(t, err)
}
