// Package autocomplete implements the prefix completion index:
// build-time prefix enumeration and popularity ranking over the
// lexicon, and a read-only query-time lookup.
package autocomplete

import (
	"math"
	"sort"
	"strings"

	"github.com/corpussearch/engine/internal/merge"
)

const (
	// MaxPrefixLen bounds both the enumerated prefix length at build
	// time and the input prefix length accepted at query time.
	MaxPrefixLen = 15
	// DefaultTopK is how many completions are kept per prefix after
	// pruning.
	DefaultTopK = 20
)

// Entry is one ranked completion for a prefix.
type Entry struct {
	Term       string
	Popularity float64
	WordID     uint32
	DocFreq    uint32
	TermFreq   uint64
}

// Build enumerates every prefix of length [2, min(len(term), MaxPrefixLen)]
// for each lexicon term of length >= 2, scores it by
// popularity = ln(1+doc_freq) * ln(1+term_freq), and keeps the topK
// highest-popularity entries per prefix, sorted descending.
func Build(entries []merge.LexiconEntry, topK int) map[string][]Entry {
	if topK <= 0 {
		topK = DefaultTopK
	}
	byPrefix := make(map[string][]Entry)
	for _, e := range entries {
		term := strings.ToLower(e.Term)
		if len(term) < 2 {
			continue
		}
		popularity := math.Log(1+float64(e.DocFreq)) * math.Log(1+float64(e.TermFreq))
		entry := Entry{
			Term:       term,
			Popularity: popularity,
			WordID:     e.WordID,
			DocFreq:    e.DocFreq,
			TermFreq:   e.TermFreq,
		}
		runes := []rune(term)
		maxLen := len(runes)
		if maxLen > MaxPrefixLen {
			maxLen = MaxPrefixLen
		}
		for l := 2; l <= maxLen; l++ {
			prefix := string(runes[:l])
			byPrefix[prefix] = append(byPrefix[prefix], entry)
		}
	}

	for prefix, list := range byPrefix {
		sort.Slice(list, func(i, j int) bool {
			if list[i].Popularity != list[j].Popularity {
				return list[i].Popularity > list[j].Popularity
			}
			return list[i].Term < list[j].Term
		})
		if len(list) > topK {
			list = list[:topK]
		}
		byPrefix[prefix] = list
	}
	return byPrefix
}
