// Package quotes turns a directory tree of plain-text quote files into
// an efficiently queryable, weighted quote store for the QOTD service's
// data layer.
//
// # Overview
//
// The quotes package owns everything between the filesystem and the
// serving loop: it indexes each file into byte spans, filters files by
// content category, and samples quotes fairly across files of very
// unequal size. The corpus is built once at startup and is immutable
// for the life of the process; the only state that moves afterwards is
// each file's seek cursor, reset before every read.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│          Quote directory            │
//	│   (plain text, '%' delimited)       │
//	└─────────────────────────────────────┘
//	                 │ IndexFile (one per regular file)
//	                 ▼
//	┌─────────────────────────────────────┐
//	│            QuoteFile                │
//	│  open handle + spans + encoding     │
//	│  + category                         │
//	└─────────────────────────────────────┘
//	                 │ Build (filter + weight)
//	                 ▼
//	┌─────────────────────────────────────┐
//	│              Corpus                 │
//	│  eligible files + weighted chooser  │
//	│  + injected RNG                     │
//	└─────────────────────────────────────┘
//
// # File format
//
// A quote file holds zero or more quotes separated by lines whose
// first character is '%'. A quote's bytes are everything strictly
// between two consecutive delimiter lines; the delimiter lines
// themselves are never part of a quote. The start of the file counts
// as a boundary, so text before the first delimiter forms a quote,
// while a final quote with no closing delimiter is dropped.
//
// Two tokens, matched as substrings anywhere in a line, set the file's
// encoding — the first one found wins: "$SerrOFQ$" marks rot13-encoded
// content, "$FreeBSD$" marks plain content. Files are plain by
// default. A file whose name ends in "-o" is categorized as offensive,
// independent of its encoding.
//
// # Selection fairness
//
// Selection is two-stage: a file is picked with probability
// proportional to its quote count, then a quote is picked uniformly
// within the file. The net effect is that every quote in the corpus is
// equally likely, whether it lives in a two-quote file or a
// two-thousand-quote file.
//
// # Concurrency
//
// A Corpus is deliberately not thread-safe: quote reads mutate the
// originating file's seek position. The server package serializes all
// access through a single broker goroutine, so this package never
// takes a lock.
package quotes
