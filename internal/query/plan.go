// Package query implements the query executor: term lookup,
// Boolean/positional combination, BM25 + field-boost + recency ranking,
// and bounded top-K selection.
package query

import "time"

// Mode selects how query terms combine. The executor dispatches on Mode
// via a plain switch rather than runtime class polymorphism.
type Mode int

const (
	ModeOR Mode = iota
	ModeAND
	ModePhrase
)

func (m Mode) String() string {
	switch m {
	case ModeOR:
		return "OR"
	case ModeAND:
		return "AND"
	case ModePhrase:
		return "PHRASE"
	default:
		return "UNKNOWN"
	}
}

// Plan is one query's parameters, built by the caller (a CLI parser, a
// future transport layer, or a test) and handed to Executor.Search.
type Plan struct {
	Terms    []string
	Mode     Mode
	TopK     int
	Deadline time.Time // zero value means no deadline
}

func (p Plan) hasDeadline() bool {
	return !p.Deadline.IsZero()
}
