package quotes

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"math/rand"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/mroth/weightedrand/v2"
	"golang.org/x/exp/slices"
)

// ErrNoQuotes is returned by Build when no file under the corpus
// directory survives category filtering with at least one quote, since
// no valid weight distribution exists over zero files.
var ErrNoQuotes = errors.New("no eligible quote files")

// Corpus is the complete collection of indexed, category-filtered
// quote files available for selection. It is built once before serving
// begins and never re-indexed; the weighted chooser over its files is
// likewise immutable after construction.
//
// A Corpus is NOT safe for concurrent use: reading a quote mutates the
// originating file's seek position, and the injected RNG is not
// synchronized. All reads must be funneled through a single owner (see
// the server package's Broker).
type Corpus struct {
	files   []*QuoteFile
	chooser *weightedrand.Chooser[int, int]
	rng     *rand.Rand
}

// Build indexes every regular file under dir (recursively), keeps
// those whose category is in allowed and which contain at least one
// quote, and constructs the weighted sampler over the survivors with
// each file's quote count as its weight. That weighting makes every
// quote — not every file — equally likely, no matter how unevenly
// quotes are spread across files.
//
// Any traversal or per-file I/O error aborts the build; filtered and
// empty files are logged and skipped. Build fails with ErrNoQuotes if
// nothing survives.
//
// rng drives all subsequent selection; pass a seeded source for
// deterministic sampling, or nil for a time-seeded one.
func Build(dir string, allowed []QuoteCategory, rng *rand.Rand) (*Corpus, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	var files []*QuoteFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		qf, err := IndexFile(path)
		if err != nil {
			return err
		}
		if !slices.Contains(allowed, qf.Category()) {
			log.Printf("file %q is not in allowed categories", path)
			qf.Close()
			return nil
		}
		if qf.QuoteCount() == 0 {
			log.Printf("file %q contains no quotes", path)
			qf.Close()
			return nil
		}

		log.Printf("indexed file %q containing %d entries", path, qf.QuoteCount())
		files = append(files, qf)
		return nil
	})
	if err != nil {
		closeFiles(files)
		return nil, fmt.Errorf("indexing %s: %w", dir, err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoQuotes)
	}

	choices := make([]weightedrand.Choice[int, int], len(files))
	for i, qf := range files {
		choices[i] = weightedrand.NewChoice(i, qf.QuoteCount())
	}
	chooser, err := weightedrand.NewChooser(choices...)
	if err != nil {
		closeFiles(files)
		return nil, fmt.Errorf("building quote sampler: %w", err)
	}

	return &Corpus{files: files, chooser: chooser, rng: rng}, nil
}

// RandomQuote selects and reads one quote: first a file, with
// probability proportional to its quote count, then a uniformly random
// quote within that file. I/O errors propagate and are never retried
// here.
func (c *Corpus) RandomQuote() ([]byte, error) {
	fileIdx := c.chooser.PickSource(c.rng)
	spanIdx := c.rng.Intn(c.files[fileIdx].QuoteCount())
	return c.ReadQuote(fileIdx, spanIdx)
}

// ReadQuote seeks the file's handle to the span's offset, reads
// exactly its length, and decodes rot13 content before returning. The
// seek position carries no meaning between calls; it is reset here on
// every read.
func (c *Corpus) ReadQuote(fileIdx, spanIdx int) ([]byte, error) {
	qf := c.files[fileIdx]
	span := qf.spans[spanIdx]

	if _, err := qf.handle.Seek(int64(span.Offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking in %s: %w", qf.path, err)
	}
	quote := make([]byte, span.Length)
	if _, err := io.ReadFull(qf.handle, quote); err != nil {
		return nil, fmt.Errorf("reading quote from %s: %w", qf.path, err)
	}

	if qf.encoding == EncodingRot13 {
		rot13(quote)
	}

	atomic.AddUint64(&qf.served, 1)
	return quote, nil
}

// FileCount returns the number of eligible files in the corpus.
func (c *Corpus) FileCount() int { return len(c.files) }

// QuoteCount returns the total number of quotes across all files.
func (c *Corpus) QuoteCount() int {
	total := 0
	for _, qf := range c.files {
		total += qf.QuoteCount()
	}
	return total
}

// Close releases every file handle held by the corpus. Reads fail
// afterwards.
func (c *Corpus) Close() {
	closeFiles(c.files)
}

func closeFiles(files []*QuoteFile) {
	for _, qf := range files {
		qf.Close()
	}
}
