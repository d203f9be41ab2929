package quotes

import "fmt"

// Selection is the caller-facing category filter consumed from the
// CLI. It maps to the set of QuoteCategory values accepted when
// building a Corpus.
type Selection int

const (
	// SelectDecorous allows only decorous quotes (the default).
	SelectDecorous Selection = iota
	// SelectOffensive allows only offensive quotes.
	SelectOffensive
	// SelectAll allows both categories.
	SelectAll
)

// ParseSelection converts a selector name from the command line into a
// Selection.
func ParseSelection(s string) (Selection, error) {
	switch s {
	case "decorous":
		return SelectDecorous, nil
	case "offensive":
		return SelectOffensive, nil
	case "all":
		return SelectAll, nil
	}
	return SelectDecorous, fmt.Errorf("unknown category selection %q (want decorous, offensive or all)", s)
}

// Categories expands the selection into the category set passed to
// Build.
func (s Selection) Categories() []QuoteCategory {
	switch s {
	case SelectOffensive:
		return []QuoteCategory{CategoryOffensive}
	case SelectAll:
		return []QuoteCategory{CategoryDecorous, CategoryOffensive}
	default:
		return []QuoteCategory{CategoryDecorous}
	}
}
