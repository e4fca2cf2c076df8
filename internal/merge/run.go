// Package merge implements the external k-way merger: streaming the
// per-block sorted .inv runs, merging same-term entries across blocks,
// and writing sharded posting barrels plus a global lexicon.
package merge

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// blockPosting is one document's postings for a term, as parsed from a
// block's .inv line.
type blockPosting struct {
	DocID     uint32
	Positions []uint32
}

// run streams one block_*.inv file's lines, term by term, in the
// lexicographic order the flusher wrote them in. It never holds more
// than one parsed line in memory.
type run struct {
	path    string
	f       *os.File
	scanner *bufio.Scanner

	term     string
	postings []blockPosting
	done     bool
}

func openRun(path string) (*run, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("merge: opening run %s: %w", path, err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 64<<20)
	r := &run{path: path, f: f, scanner: sc}
	if err := r.advance(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// advance loads the next term/postings pair, or marks the run done at
// EOF.
func (r *run) advance() error {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return fmt.Errorf("merge: reading run %s: %w", r.path, err)
		}
		r.done = true
		r.term = ""
		r.postings = nil
		return nil
	}
	term, postings, err := parseInvLine(r.scanner.Text())
	if err != nil {
		return fmt.Errorf("merge: run %s: %w", r.path, err)
	}
	r.term = term
	r.postings = postings
	return nil
}

func (r *run) close() error {
	return r.f.Close()
}

// parseInvLine parses one "term\tdocid:pos,pos;docid:pos,pos;...\n" line
// as written by internal/spimi/flush.go.
func parseInvLine(line string) (string, []blockPosting, error) {
	parts := strings.SplitN(line, "\t", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("malformed block entry %q", line)
	}
	term := parts[0]
	if term == "" {
		return "", nil, fmt.Errorf("malformed block entry: empty term")
	}

	groups := strings.Split(parts[1], ";")
	postings := make([]blockPosting, 0, len(groups))
	for _, g := range groups {
		if g == "" {
			continue
		}
		docPart, posPart, ok := strings.Cut(g, ":")
		if !ok {
			return "", nil, fmt.Errorf("malformed posting group %q for term %q", g, term)
		}
		docID, err := strconv.ParseUint(docPart, 10, 32)
		if err != nil {
			return "", nil, fmt.Errorf("malformed doc_id %q for term %q: %w", docPart, term, err)
		}
		var positions []uint32
		if posPart != "" {
			for _, p := range strings.Split(posPart, ",") {
				pos, err := strconv.ParseUint(p, 10, 32)
				if err != nil {
					return "", nil, fmt.Errorf("malformed position %q for term %q: %w", p, term, err)
				}
				positions = append(positions, uint32(pos))
			}
		}
		postings = append(postings, blockPosting{DocID: uint32(docID), Positions: positions})
	}
	sort.Slice(postings, func(i, j int) bool { return postings[i].DocID < postings[j].DocID })
	return term, postings, nil
}
