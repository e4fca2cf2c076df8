package metadata

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// WriteTo persists resolved per-document metadata as doc_meta.txt: one
// "doc_key\ttitle\tauthors\tpub_date" row per document that has any
// metadata at all. This closes the gap between metadata being resolved
// once during block building and it needing to be a
// read-only, shared-without-re-lookup resource at query time.
func WriteTo(w io.Writer, records map[string]Record) error {
	bw := bufio.NewWriter(w)
	for docKey, rec := range records {
		if _, err := fmt.Fprintf(bw, "%s\t%s\t%s\t%s\n",
			escape(docKey), escape(rec.Title), escape(rec.Authors), escape(rec.PubDate)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile persists records to path via WriteTo.
func WriteFile(path string, records map[string]Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("metadata: creating %s: %w", path, err)
	}
	defer f.Close()
	return WriteTo(f, records)
}

// LoadFile reads a doc_meta.txt previously written by WriteFile into a
// Map Source.
func LoadFile(path string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Map{}, nil
		}
		return nil, fmt.Errorf("metadata: opening %s: %w", path, err)
	}
	defer f.Close()

	m := make(Map)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 4 {
			return nil, fmt.Errorf("metadata: malformed row %q", line)
		}
		m[unescape(parts[0])] = Record{
			Title:   unescape(parts[1]),
			Authors: unescape(parts[2]),
			PubDate: unescape(parts[3]),
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// escape/unescape neutralize tabs and newlines that would otherwise
// corrupt the row format; real metadata text essentially never contains
// either, so this is a defensive no-op in practice.
func escape(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func unescape(s string) string { return s }
