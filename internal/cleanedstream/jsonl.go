package cleanedstream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	applog "github.com/corpussearch/engine/pkg/logger"
)

// jsonlRecord is the on-wire JSON shape of Record:
// { doc_key, fields: [{ name, tokens: [{term, pos}] }] }.
type jsonlRecord struct {
	DocKey  string `json:"doc_key"`
	Title   string `json:"title,omitempty"`
	Authors string `json:"authors,omitempty"`
	PubDate string `json:"pub_date,omitempty"`
	Fields  []struct {
		Name   string `json:"name"`
		Tokens []struct {
			Term string `json:"term"`
			Pos  uint32 `json:"pos"`
		} `json:"tokens"`
	} `json:"fields"`
}

// JSONLReader streams Records from a newline-delimited JSON file, the
// default file-backed cleaned-document feed.
type JSONLReader struct {
	scanner *bufio.Scanner
	log     *slog.Logger

	malformed int
}

// NewJSONLReader wraps r. Lines are read on demand by Next.
func NewJSONLReader(r io.Reader) *JSONLReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	return &JSONLReader{
		scanner: sc,
		log:     applog.WithComponent("cleanedstream.jsonl"),
	}
}

// Next returns the next parsed Record, or io.EOF when the stream is
// exhausted. Malformed lines are skipped with a warning and a counter
// increment, not surfaced as an
// error to the caller.
func (r *JSONLReader) Next() (Record, error) {
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var jr jsonlRecord
		if err := json.Unmarshal(line, &jr); err != nil {
			r.malformed++
			r.log.Warn("skipping malformed record", "error", err)
			continue
		}
		if jr.DocKey == "" {
			r.malformed++
			r.log.Warn("skipping record with empty doc_key")
			continue
		}
		return toRecord(jr), nil
	}
	if err := r.scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("cleanedstream: reading jsonl: %w", err)
	}
	return Record{}, io.EOF
}

// Malformed returns the count of lines skipped for failing to parse or
// for an empty doc_key.
func (r *JSONLReader) Malformed() int {
	return r.malformed
}

func toRecord(jr jsonlRecord) Record {
	rec := Record{
		DocKey:  jr.DocKey,
		Title:   jr.Title,
		Authors: jr.Authors,
		PubDate: jr.PubDate,
		Fields:  make([]Field, 0, len(jr.Fields)),
	}
	for _, f := range jr.Fields {
		field := Field{Name: f.Name, Tokens: make([]Token, 0, len(f.Tokens))}
		for _, t := range f.Tokens {
			field.Tokens = append(field.Tokens, Token{Term: t.Term, Pos: t.Pos})
		}
		rec.Fields = append(rec.Fields, field)
	}
	return rec
}
