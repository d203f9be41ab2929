// Package server implements the QOTD serving loop: a dual-protocol
// (TCP + UDP) connection server multiplexing all quote reads through a
// single broker goroutine that exclusively owns the corpus.
//
// # Overview
//
// RFC 865 is a single-shot protocol: a client connects over TCP, or
// sends any datagram over UDP, and receives exactly one quote. The
// interesting part is not the protocol but the sharing model — the
// corpus's file handles carry a mutable seek cursor, so reads must not
// run concurrently. Rather than lock the corpus, this package gives it
// one owner.
//
// # Architecture
//
//	┌──────────────┐   ┌──────────────┐
//	│  TCP accept  │   │  UDP receive │
//	│     loop     │   │     loop     │
//	└──────┬───────┘   └──────┬───────┘
//	       │ one goroutine per│client
//	       ▼                  ▼
//	┌─────────────────────────────────┐
//	│     bounded request channel     │  ← backpressure at 32 pending
//	└───────────────┬─────────────────┘
//	                ▼
//	┌─────────────────────────────────┐
//	│        Broker goroutine         │  sole owner of the Corpus
//	│  fetch one quote → wait → send  │
//	└─────────────────────────────────┘
//
// # Serialization properties
//
// The broker computes a quote speculatively, then blocks until a
// request arrives: under bursty demand requests are answered strictly
// one at a time, FIFO, with exactly one corpus I/O in flight. This is
// a stated invariant of the design; do not replace it with a prefetch
// queue.
//
// # Failure model
//
// Per-connection I/O failures are logged and abort only that handler.
// A corpus I/O failure inside the broker is fatal: the broker stops,
// Serve returns its error, and the process should exit non-zero,
// because no future request can ever be satisfied once the corpus's
// sole reader is gone.
//
// # Accepted limitations
//
// There are no per-client timeouts (a stalled TCP client keeps its
// handler alive indefinitely), and the UDP oversize retry loop is
// unbounded: a corpus containing only quotes of 512 bytes or more
// never answers a UDP client. Both match the legacy protocol's
// minimalism.
package server
