package spimi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// writeBlock serializes one in-memory block to block_<index>.inv (term-
// sorted postings) and block_<index>.fwd (one JSON record per document).
// Returns both file paths.
func writeBlock(dir string, index int, inverted map[string]map[uint32][]uint32, forward []forwardRecord) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("creating block dir: %w", err)
	}

	invPath := filepath.Join(dir, fmt.Sprintf("block_%d.inv", index))
	if err := writeInv(invPath, inverted); err != nil {
		return "", "", err
	}

	fwdPath := filepath.Join(dir, fmt.Sprintf("block_%d.fwd", index))
	if err := writeFwd(fwdPath, forward); err != nil {
		return "", "", err
	}

	return invPath, fwdPath, nil
}

// writeInv writes one line per term, in lexicographic order, as
// "term\tdocid:pos,pos;docid:pos,pos;...\n". The merger depends on this
// ordering to stream-merge blocks without reading any one fully into
// memory.
func writeInv(path string, inverted map[string]map[uint32][]uint32) error {
	terms := make([]string, 0, len(inverted))
	for term := range inverted {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	for _, term := range terms {
		perDoc := inverted[term]
		docIDs := make([]uint32, 0, len(perDoc))
		for docID := range perDoc {
			docIDs = append(docIDs, docID)
		}
		sort.Slice(docIDs, func(i, j int) bool { return docIDs[i] < docIDs[j] })

		var sb strings.Builder
		sb.WriteString(term)
		sb.WriteByte('\t')
		for i, docID := range docIDs {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteString(strconv.FormatUint(uint64(docID), 10))
			sb.WriteByte(':')
			positions := perDoc[docID]
			for j, pos := range positions {
				if j > 0 {
					sb.WriteByte(',')
				}
				sb.WriteString(strconv.FormatUint(uint64(pos), 10))
			}
		}
		sb.WriteByte('\n')
		if _, err := w.WriteString(sb.String()); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	return w.Flush()
}

// fwdJSONRecord is the JSON-ish on-disk shape of a forwardRecord.
type fwdJSONRecord struct {
	DocKey string              `json:"doc_key"`
	Terms  map[string][]uint32 `json:"terms"`
}

// writeFwd writes one JSON object per line, preserving document order
// as added, for the forward remapper to rewrite into word_ids.
func writeFwd(path string, forward []forwardRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, rec := range forward {
		if err := enc.Encode(fwdJSONRecord{DocKey: rec.DocKey, Terms: rec.Terms}); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return w.Flush()
}
