// Package forward implements the forward index remapper: rewriting each
// block's per-document term lists to use the global word_id assigned by
// the merger, producing the combined forward_index file.
package forward

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	applog "github.com/corpussearch/engine/pkg/logger"
)

// Posting is one term's occurrence record within a document's forward
// entry: word_id, occurrence count, and the positions themselves.
type Posting struct {
	WordID    uint32   `json:"word_id"`
	Freq      uint32   `json:"freq"`
	Positions []uint32 `json:"positions"`
}

// Record is one document's forward entry as persisted to forward_index.
type Record struct {
	DocKey   string    `json:"doc_key"`
	Postings []Posting `json:"postings"`
}

// fwdJSONRecord mirrors internal/spimi/flush.go's on-disk block_*.fwd
// shape.
type fwdJSONRecord struct {
	DocKey string              `json:"doc_key"`
	Terms  map[string][]uint32 `json:"terms"`
}

// Remap reads every block_*.fwd in blockFwdPaths, looks up each term via
// termToWordID, and writes the combined forward_index file at outPath,
// one JSON record per line, preserving the input document order within
// and across blocks. Terms absent from termToWordID are
// logged and dropped from that document's postings, never fatal.
func Remap(blockFwdPaths []string, termToWordID map[string]uint32, outPath string) error {
	log := applog.WithComponent("forward.remap")

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("forward: creating %s: %w", outPath, err)
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)

	var dropped int
	for _, path := range blockFwdPaths {
		if err := remapBlock(path, termToWordID, enc, log, &dropped); err != nil {
			return err
		}
	}
	if dropped > 0 {
		log.Warn("dropped terms with no lexicon entry while remapping", "count", dropped)
	}
	return w.Flush()
}

func remapBlock(path string, termToWordID map[string]uint32, enc *json.Encoder, log *slog.Logger, dropped *int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("forward: opening %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 64<<20)
	for sc.Scan() {
		var raw fwdJSONRecord
		if err := json.Unmarshal(sc.Bytes(), &raw); err != nil {
			return fmt.Errorf("forward: parsing %s: %w", path, err)
		}

		rec := Record{DocKey: raw.DocKey, Postings: make([]Posting, 0, len(raw.Terms))}
		for term, positions := range raw.Terms {
			wordID, ok := termToWordID[term]
			if !ok {
				log.Warn("term missing from lexicon, dropping from forward record", "term", term, "doc_key", raw.DocKey)
				*dropped++
				continue
			}
			rec.Postings = append(rec.Postings, Posting{
				WordID:    wordID,
				Freq:      uint32(len(positions)),
				Positions: positions,
			})
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("forward: writing forward_index: %w", err)
		}
	}
	return sc.Err()
}
