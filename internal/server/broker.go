package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrBrokerStopped is returned by Get once the broker's worker has
// exited and no further quotes can ever be served.
var ErrBrokerStopped = errors.New("quote broker stopped")

// brokerQueueDepth bounds the broker's request queue. Submitting a
// request blocks once this many are pending (backpressure).
const brokerQueueDepth = 32

// getQuote is one pending request: the broker delivers exactly one
// quote on its private reply channel.
type getQuote struct {
	reply chan []byte
}

// QuoteSource is the broker's view of the corpus read path: one
// randomly selected quote per call. *quotes.Corpus satisfies it; tests
// substitute instrumented sources.
type QuoteSource interface {
	RandomQuote() ([]byte, error)
}

// Broker is the single serializing owner of the corpus's read path.
// File handles carry a mutable seek cursor, so instead of locking them
// the broker funnels every read through one dedicated goroutine;
// requests are answered strictly first-submitted-first-served.
//
// The worker computes one quote speculatively, then blocks until a
// request wants it. That keeps corpus read concurrency at exactly one
// in-flight I/O operation at all times — there is never a prefetch
// queue, only a single quote ahead of demand.
//
// Any I/O failure computing a quote is fatal: the worker records the
// error, closes Done, and stops. Once that happens the whole service
// must stop accepting work, since no future request can be satisfied.
type Broker struct {
	source   QuoteSource
	requests chan getQuote
	ctx      context.Context    // Cancelled by Stop
	cancel   context.CancelFunc // Shuts the worker down
	done     chan struct{}      // Closed when the worker exits
	err      error              // Worker's fatal error; read only after done
	wg       sync.WaitGroup
}

// NewBroker creates a broker over the given quote source. The broker
// assumes exclusive ownership of the source's read path; nothing else
// may call into it once Start has been called.
func NewBroker(source QuoteSource) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		source:   source,
		requests: make(chan getQuote, brokerQueueDepth),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start launches the broker's worker goroutine.
func (b *Broker) Start() {
	b.wg.Add(1)
	go b.run()
}

// run is the worker loop: choose a quote, wait for the next request,
// deliver, repeat.
func (b *Broker) run() {
	defer b.wg.Done()
	defer close(b.done)

	for {
		quote, err := b.source.RandomQuote()
		if err != nil {
			// Fatal: the sole reader of the corpus cannot continue.
			b.err = fmt.Errorf("choosing quote: %w", err)
			log.Printf("quote broker failed: %v", b.err)
			return
		}
		debugf("chose quote, waiting for a request")

		select {
		case req := <-b.requests:
			// reply is buffered, so delivery never blocks the worker
			// on a requester that has already given up.
			req.reply <- quote
		case <-b.ctx.Done():
			return
		}
	}
}

// Get submits a request and waits for the broker's reply. It blocks
// while the bounded request queue is full. Once the worker has exited,
// Get returns the worker's fatal error, or ErrBrokerStopped after an
// orderly Stop.
func (b *Broker) Get() ([]byte, error) {
	req := getQuote{reply: make(chan []byte, 1)}

	select {
	case b.requests <- req:
	case <-b.done:
		return nil, b.exitErr()
	}

	select {
	case quote := <-req.reply:
		return quote, nil
	case <-b.done:
		// The worker may have delivered our quote just before exiting.
		select {
		case quote := <-req.reply:
			return quote, nil
		default:
			return nil, b.exitErr()
		}
	}
}

// Stop shuts the worker down and waits for it to exit. A quote fetched
// speculatively but never requested is discarded.
func (b *Broker) Stop() {
	b.cancel()
	b.wg.Wait()
}

// Done is closed when the worker has exited, for any reason.
func (b *Broker) Done() <-chan struct{} { return b.done }

// Err returns the worker's fatal error. Only meaningful after Done is
// closed; nil after an orderly Stop.
func (b *Broker) Err() error {
	select {
	case <-b.done:
		return b.err
	default:
		return nil
	}
}

// exitErr reports why Get cannot be satisfied. Called only after done
// is observed closed, so reading err is safe.
func (b *Broker) exitErr() error {
	if b.err != nil {
		return b.err
	}
	return ErrBrokerStopped
}
