package autocomplete

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	applog "github.com/corpussearch/engine/pkg/logger"
)

// SlowQueryThreshold is the lookup latency above which Suggest warns,
// per the original engine's "should be < 100ms" check.
const SlowQueryThreshold = 100 * time.Millisecond

// Index is the loaded, read-only prefix completion map.
// Safe for concurrent use by many query goroutines: the map is never
// mutated after Load/NewIndex returns.
type Index struct {
	byPrefix map[string][]Entry
	log      *slog.Logger
}

// NewIndex wraps an already-built prefix map, e.g. from Build.
func NewIndex(byPrefix map[string][]Entry) *Index {
	return &Index{byPrefix: byPrefix, log: applog.WithComponent("autocomplete.index")}
}

// Suggest lowercases prefix, rejects inputs shorter than 2 characters
// with an empty result, truncates to MaxPrefixLen, and returns up to
// limit already-sorted completions.
func (idx *Index) Suggest(prefix string, limit int) []Entry {
	start := time.Now()
	defer func() {
		if elapsed := time.Since(start); elapsed > SlowQueryThreshold {
			idx.log.Warn("slow autocomplete lookup", "prefix", prefix, "elapsed_ms", elapsed.Milliseconds())
		}
	}()

	lower := strings.ToLower(prefix)
	runes := []rune(lower)
	if len(runes) < 2 {
		return []Entry{}
	}
	if len(runes) > MaxPrefixLen {
		lower = string(runes[:MaxPrefixLen])
	}

	list, ok := idx.byPrefix[lower]
	if !ok {
		return []Entry{}
	}
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	return list[:limit]
}

// WriteTo persists byPrefix in the fixed binary layout:
//
//	[u32 n_prefixes]
//	for each prefix:
//	  u16 len | bytes
//	  u16 n_terms
//	  for each entry: u16 len | bytes | f64 popularity | u32 word_id | u32 df | u64 tf
func WriteTo(w io.Writer, byPrefix map[string][]Entry) error {
	bw := bufio.NewWriter(w)
	var hdr [8]byte

	binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(byPrefix)))
	if _, err := bw.Write(hdr[0:4]); err != nil {
		return err
	}

	for prefix, entries := range byPrefix {
		binary.LittleEndian.PutUint16(hdr[0:2], uint16(len(prefix)))
		if _, err := bw.Write(hdr[0:2]); err != nil {
			return err
		}
		if _, err := bw.WriteString(prefix); err != nil {
			return err
		}
		binary.LittleEndian.PutUint16(hdr[0:2], uint16(len(entries)))
		if _, err := bw.Write(hdr[0:2]); err != nil {
			return err
		}

		for _, e := range entries {
			binary.LittleEndian.PutUint16(hdr[0:2], uint16(len(e.Term)))
			if _, err := bw.Write(hdr[0:2]); err != nil {
				return err
			}
			if _, err := bw.WriteString(e.Term); err != nil {
				return err
			}

			var rest [24]byte
			binary.LittleEndian.PutUint64(rest[0:8], math.Float64bits(e.Popularity))
			binary.LittleEndian.PutUint32(rest[8:12], e.WordID)
			binary.LittleEndian.PutUint32(rest[12:16], e.DocFreq)
			binary.LittleEndian.PutUint64(rest[16:24], e.TermFreq)
			if _, err := bw.Write(rest[:]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteFile persists byPrefix to path.
func WriteFile(path string, byPrefix map[string][]Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("autocomplete: creating %s: %w", path, err)
	}
	defer f.Close()
	return WriteTo(f, byPrefix)
}

// Load reads a binary autocomplete index written by WriteTo/WriteFile.
func Load(path string) (*Index, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("autocomplete: reading %s: %w", path, err)
	}
	byPrefix, err := decode(buf)
	if err != nil {
		return nil, fmt.Errorf("autocomplete: decoding %s: %w", path, err)
	}
	return NewIndex(byPrefix), nil
}

func decode(buf []byte) (map[string][]Entry, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("truncated header")
	}
	nPrefixes := binary.LittleEndian.Uint32(buf[0:4])
	buf = buf[4:]

	byPrefix := make(map[string][]Entry, nPrefixes)
	for i := uint32(0); i < nPrefixes; i++ {
		prefix, rest, err := readString16(buf)
		if err != nil {
			return nil, err
		}
		buf = rest
		if len(buf) < 2 {
			return nil, fmt.Errorf("truncated n_terms for prefix %q", prefix)
		}
		nTerms := binary.LittleEndian.Uint16(buf[0:2])
		buf = buf[2:]

		entries := make([]Entry, nTerms)
		for j := uint16(0); j < nTerms; j++ {
			term, rest, err := readString16(buf)
			if err != nil {
				return nil, err
			}
			buf = rest
			if len(buf) < 24 {
				return nil, fmt.Errorf("truncated entry for prefix %q", prefix)
			}
			entries[j] = Entry{
				Term:       term,
				Popularity: math.Float64frombits(binary.LittleEndian.Uint64(buf[0:8])),
				WordID:     binary.LittleEndian.Uint32(buf[8:12]),
				DocFreq:    binary.LittleEndian.Uint32(buf[12:16]),
				TermFreq:   binary.LittleEndian.Uint64(buf[16:24]),
			}
			buf = buf[24:]
		}
		byPrefix[prefix] = entries
	}
	return byPrefix, nil
}

func readString16(buf []byte) (string, []byte, error) {
	if len(buf) < 2 {
		return "", nil, fmt.Errorf("truncated length prefix")
	}
	l := binary.LittleEndian.Uint16(buf[0:2])
	buf = buf[2:]
	if len(buf) < int(l) {
		return "", nil, fmt.Errorf("truncated string of length %d", l)
	}
	return string(buf[:l]), buf[l:], nil
}
