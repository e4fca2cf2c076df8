// Package lexicon holds the global term table row shape and its
// lexicon.txt/terms_list.txt/shards.txt on-disk encodings. It is split
// out from internal/merge (which writes these files) so that
// internal/shard (which reads them back, and which internal/merge
// depends on for shard assignment) does not import internal/merge.
package lexicon

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Entry is one row of the global term table.
type Entry struct {
	WordID   uint32
	Term     string
	DocFreq  uint32
	TermFreq uint64
	Offset   uint64
	Bytes    uint64
	ShardID  uint32
}

// WriteLexicon writes lexicon.txt: one row per term,
// "word_id\tterm\tdf\ttf\toffset\tbytes\tshard_id", in word_id order
// (which is also build/merge term order).
func WriteLexicon(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating lexicon: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\t%d\n",
			e.WordID, e.Term, e.DocFreq, e.TermFreq, e.Offset, e.Bytes, e.ShardID); err != nil {
			return fmt.Errorf("writing lexicon: %w", err)
		}
	}
	return w.Flush()
}

// WriteTermsList writes terms_list.txt: "term\tword_id" rows, consumed
// by the forward remapper.
func WriteTermsList(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating terms_list: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", e.Term, e.WordID); err != nil {
			return fmt.Errorf("writing terms_list: %w", err)
		}
	}
	return w.Flush()
}

// LoadLexicon reads a lexicon.txt previously written by Merge back into
// its row form, for the query service to load wholesale into an
// in-memory map at startup.
func LoadLexicon(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("merge: opening lexicon: %w", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			return nil, fmt.Errorf("merge: malformed lexicon row %q", line)
		}
		e, err := parseLexiconRow(fields)
		if err != nil {
			return nil, fmt.Errorf("merge: malformed lexicon row %q: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func parseLexiconRow(fields []string) (Entry, error) {
	wordID, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return Entry{}, err
	}
	docFreq, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return Entry{}, err
	}
	termFreq, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return Entry{}, err
	}
	offset, err := strconv.ParseUint(fields[4], 10, 64)
	if err != nil {
		return Entry{}, err
	}
	bytesLen, err := strconv.ParseUint(fields[5], 10, 64)
	if err != nil {
		return Entry{}, err
	}
	shardID, err := strconv.ParseUint(fields[6], 10, 32)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		WordID:   uint32(wordID),
		Term:     fields[1],
		DocFreq:  uint32(docFreq),
		TermFreq: termFreq,
		Offset:   offset,
		Bytes:    bytesLen,
		ShardID:  uint32(shardID),
	}, nil
}

// WriteShardsDebug writes shards.txt, a human-inspectable, never-read-
// back diagnostic listing per-shard byte ranges and term counts.
func WriteShardsDebug(path string, nShards int, entries []Entry) error {
	counts := make([]int, nShards)
	sizes := make([]uint64, nShards)
	for _, e := range entries {
		counts[e.ShardID]++
		sizes[e.ShardID] += e.Bytes
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating shards.txt: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for i := 0; i < nShards; i++ {
		if _, err := fmt.Fprintf(w, "shard_%d\tterms=%d\tbytes=%d\n", i, counts[i], sizes[i]); err != nil {
			return fmt.Errorf("writing shards.txt: %w", err)
		}
	}
	return w.Flush()
}
