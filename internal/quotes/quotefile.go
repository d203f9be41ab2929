package quotes

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Markers and delimiters of the quote file format. A line whose first
// character is the delimiter separates quotes; the two tokens, matched
// anywhere in a line, decide the file's encoding (first one found in
// file order wins).
const (
	delimiter       = "%"
	rot13Token      = "$SerrOFQ$"
	plainToken      = "$FreeBSD$"
	offensiveSuffix = "-o"
)

// QuoteCategory classifies a file's content, derived from its name at
// index time and immutable afterwards.
type QuoteCategory int

const (
	// CategoryDecorous marks generally acceptable quotes.
	CategoryDecorous QuoteCategory = iota
	// CategoryOffensive marks quotes from files named with the "-o" suffix.
	CategoryOffensive
)

// String returns the category name for logging.
func (c QuoteCategory) String() string {
	if c == CategoryOffensive {
		return "offensive"
	}
	return "decorous"
}

// FileEncoding is the per-file transform applied to quote bytes before
// delivery. Fixed once indexing completes.
type FileEncoding int

const (
	// EncodingPlain leaves quote bytes untouched.
	EncodingPlain FileEncoding = iota
	// EncodingRot13 rotates alphabetic ASCII bytes by 13 on read.
	EncodingRot13
)

// String returns the encoding name for logging.
func (e FileEncoding) String() string {
	if e == EncodingRot13 {
		return "rot13"
	}
	return "plain"
}

// QuoteSpan locates one quote inside its source file. Spans never
// overlap and never include the delimiter lines that bound them.
type QuoteSpan struct {
	Offset uint64 // Byte offset of the quote's first byte
	Length uint32 // Quote length in bytes, always > 0
}

// QuoteFile is one indexed quote file. It keeps its backing file open
// for the corpus's lifetime; the handle's seek position is transient
// state reset before every read and is only ever touched by the
// corpus's single reader.
type QuoteFile struct {
	handle   *os.File
	path     string
	spans    []QuoteSpan
	encoding FileEncoding
	category QuoteCategory
	served   uint64 // atomic; quotes delivered from this file
}

// IndexFile opens and scans one quote file, producing its span table,
// encoding and category. The file handle is retained on success. Any
// open or read failure is returned to the caller and aborts the whole
// corpus build.
//
// Span extraction walks the file line by line keeping a running byte
// offset and the offset of the last boundary (initially zero, so the
// start of file acts as a boundary). Each delimiter line closes the
// span since the previous boundary if it has positive length, then
// moves the boundary past itself. A final quote with no closing
// delimiter line is therefore never indexed; that matches the legacy
// file format and is covered by the tests.
func IndexFile(path string) (*QuoteFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening quote file: %w", err)
	}

	qf := &QuoteFile{
		handle:   f,
		path:     path,
		category: categoryForName(filepath.Base(path)),
	}

	var offset, lastBoundary uint64
	encodingFound := false

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			if !encodingFound {
				if strings.Contains(line, rot13Token) {
					qf.encoding = EncodingRot13
					encodingFound = true
				} else if strings.Contains(line, plainToken) {
					qf.encoding = EncodingPlain
					encodingFound = true
				}
			}

			if strings.HasPrefix(line, delimiter) {
				if length := offset - lastBoundary; length > 0 {
					qf.spans = append(qf.spans, QuoteSpan{
						Offset: lastBoundary,
						Length: uint32(length),
					})
				}
				lastBoundary = offset + uint64(len(line))
			}
			offset += uint64(len(line))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("reading quote file %s: %w", path, err)
		}
	}

	return qf, nil
}

// categoryForName derives a file's category from its base name,
// independent of its encoding.
func categoryForName(name string) QuoteCategory {
	if strings.HasSuffix(name, offensiveSuffix) {
		return CategoryOffensive
	}
	return CategoryDecorous
}

// Path returns the file's path as given to IndexFile.
func (qf *QuoteFile) Path() string { return qf.path }

// Category returns the file's content category.
func (qf *QuoteFile) Category() QuoteCategory { return qf.category }

// Encoding returns the file's detected encoding.
func (qf *QuoteFile) Encoding() FileEncoding { return qf.encoding }

// QuoteCount returns the number of quotes indexed in the file.
func (qf *QuoteFile) QuoteCount() int { return len(qf.spans) }

// Close releases the backing file handle. The file can no longer be
// read from afterwards.
func (qf *QuoteFile) Close() error { return qf.handle.Close() }

// rot13 rotates alphabetic ASCII bytes by 13 positions within their
// case, in place. The transform is its own inverse; all other bytes
// pass through unchanged.
func rot13(text []byte) {
	for i, c := range text {
		switch {
		case c >= 'A' && c <= 'M', c >= 'a' && c <= 'm':
			text[i] = c + 13
		case c >= 'N' && c <= 'Z', c >= 'n' && c <= 'z':
			text[i] = c - 13
		}
	}
}
