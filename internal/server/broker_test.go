package server

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/qotd/internal/quotes"
)

// buildTestCorpus writes the given quote files into a temp directory
// and builds a corpus over all categories with a fixed seed.
func buildTestCorpus(t *testing.T, files map[string]string) *quotes.Corpus {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	corpus, err := quotes.Build(dir, quotes.SelectAll.Categories(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	t.Cleanup(corpus.Close)
	return corpus
}

func TestBrokerServesQuotes(t *testing.T) {
	corpus := buildTestCorpus(t, map[string]string{
		"f": "%\nFirst quote.\n%\nSecond quote.\n%\n",
	})

	broker := NewBroker(corpus)
	broker.Start()
	defer broker.Stop()

	for i := 0; i < 10; i++ {
		quote, err := broker.Get()
		require.NoError(t, err)
		assert.Contains(t, []string{"First quote.\n", "Second quote.\n"}, string(quote))
	}
}

func TestBrokerConcurrentGets(t *testing.T) {
	corpus := buildTestCorpus(t, map[string]string{
		"f": "%\nOnly quote.\n%\n",
	})

	broker := NewBroker(corpus)
	broker.Start()
	defer broker.Stop()

	// Far more concurrent requesters than the queue depth, so some
	// submissions block on backpressure; all must still be answered.
	var wg sync.WaitGroup
	for i := 0; i < brokerQueueDepth*4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			quote, err := broker.Get()
			assert.NoError(t, err)
			assert.Equal(t, "Only quote.\n", string(quote))
		}()
	}
	wg.Wait()
}

// countingSource hands out numbered quotes and counts how many times
// the broker has fetched one.
type countingSource struct {
	fetches atomic.Int32
}

func (s *countingSource) RandomQuote() ([]byte, error) {
	return []byte(fmt.Sprintf("quote %d", s.fetches.Add(1))), nil
}

func TestBrokerFetchesOneQuoteAhead(t *testing.T) {
	source := &countingSource{}
	broker := NewBroker(source)
	broker.Start()
	defer broker.Stop()

	// The worker fetches exactly one quote speculatively, then blocks
	// for a request; a second fetch must not start before the first
	// quote is consumed.
	require.Eventually(t, func() bool { return source.fetches.Load() == 1 },
		time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, source.fetches.Load(),
		"a second fetch started with no request pending")

	quote, err := broker.Get()
	require.NoError(t, err)
	assert.Equal(t, "quote 1", string(quote))

	// Consuming the quote allows exactly one more fetch, no further.
	require.Eventually(t, func() bool { return source.fetches.Load() == 2 },
		time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 2, source.fetches.Load(),
		"fetches ran ahead of demand")
}

func TestBrokerAnswersInSubmissionOrder(t *testing.T) {
	source := &countingSource{}
	broker := NewBroker(source)

	// Queue requests before the worker starts so the submission order
	// is unambiguous; quotes are numbered by fetch order, so request i
	// must receive quote i+1.
	pending := make([]getQuote, 10)
	for i := range pending {
		pending[i] = getQuote{reply: make(chan []byte, 1)}
		broker.requests <- pending[i]
	}

	broker.Start()
	defer broker.Stop()

	for i, req := range pending {
		select {
		case quote := <-req.reply:
			assert.Equal(t, fmt.Sprintf("quote %d", i+1), string(quote))
		case <-time.After(5 * time.Second):
			t.Fatalf("Request %d was never answered", i)
		}
	}
}

func TestBrokerStop(t *testing.T) {
	corpus := buildTestCorpus(t, map[string]string{
		"f": "%\nA quote.\n%\n",
	})

	broker := NewBroker(corpus)
	broker.Start()
	broker.Stop()

	select {
	case <-broker.Done():
	default:
		t.Fatal("Done should be closed after Stop")
	}
	assert.NoError(t, broker.Err())

	_, err := broker.Get()
	assert.ErrorIs(t, err, ErrBrokerStopped)
}

func TestBrokerFatalOnReadError(t *testing.T) {
	corpus := buildTestCorpus(t, map[string]string{
		"f": "%\nA quote.\n%\n",
	})
	// Closing the corpus makes every read fail, so the broker's very
	// first speculative fetch is fatal.
	corpus.Close()

	broker := NewBroker(corpus)
	broker.Start()

	select {
	case <-broker.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Broker did not stop after a read error")
	}
	require.Error(t, broker.Err())

	_, err := broker.Get()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrBrokerStopped)
}
