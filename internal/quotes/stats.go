package quotes

import "sync/atomic"

// CorpusStats contains aggregate statistics about the corpus.
type CorpusStats struct {
	Files  int    // Number of eligible files
	Quotes int    // Total quotes indexed
	Served uint64 // Quotes read and delivered so far
}

// FileStats contains statistics about one indexed file.
type FileStats struct {
	Path     string        // Source file path
	Quotes   int           // Quotes indexed in this file
	Served   uint64        // Quotes delivered from this file
	Category QuoteCategory // Content category
	Encoding FileEncoding  // Detected encoding
}

// Stats returns current corpus statistics. Served counts are read
// atomically so this is safe to call while quotes are being served.
func (c *Corpus) Stats() CorpusStats {
	stats := CorpusStats{Files: len(c.files)}
	for _, qf := range c.files {
		stats.Quotes += qf.QuoteCount()
		stats.Served += atomic.LoadUint64(&qf.served)
	}
	return stats
}

// FileStats returns per-file statistics in corpus order.
func (c *Corpus) FileStats() []FileStats {
	stats := make([]FileStats, 0, len(c.files))
	for _, qf := range c.files {
		stats = append(stats, FileStats{
			Path:     qf.path,
			Quotes:   qf.QuoteCount(),
			Served:   atomic.LoadUint64(&qf.served),
			Category: qf.category,
			Encoding: qf.encoding,
		})
	}
	return stats
}
