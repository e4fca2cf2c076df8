package autocomplete

import (
	"bytes"
	"testing"

	"github.com/corpussearch/engine/internal/merge"
)

func sampleLexicon() []merge.LexiconEntry {
	return []merge.LexiconEntry{
		{WordID: 1, Term: "machine", DocFreq: 2, TermFreq: 2},
		{WordID: 2, Term: "machinery", DocFreq: 1, TermFreq: 3},
		{WordID: 3, Term: "mac", DocFreq: 1, TermFreq: 1},
		{WordID: 4, Term: "x", DocFreq: 5, TermFreq: 5}, // too short, dropped
	}
}

func TestBuildEnumeratesPrefixes(t *testing.T) {
	byPrefix := Build(sampleLexicon(), DefaultTopK)

	if _, ok := byPrefix["x"]; ok {
		t.Fatal("single-character term should not appear in the prefix map")
	}

	mac := byPrefix["mac"]
	if len(mac) != 3 {
		t.Fatalf("expected 3 terms under prefix %q, got %d: %+v", "mac", len(mac), mac)
	}
	for _, e := range mac {
		if len(e.Term) < 3 || e.Term[:3] != "mac" {
			t.Fatalf("entry %q does not have prefix %q", e.Term, "mac")
		}
	}
	// descending popularity
	for i := 1; i < len(mac); i++ {
		if mac[i-1].Popularity < mac[i].Popularity {
			t.Fatalf("entries not sorted descending by popularity: %+v", mac)
		}
	}
}

func TestBuildPrunesToTopK(t *testing.T) {
	entries := make([]merge.LexiconEntry, 0, 30)
	for i := 0; i < 30; i++ {
		entries = append(entries, merge.LexiconEntry{
			WordID:   uint32(i),
			Term:     "ab" + string(rune('a'+i%26)),
			DocFreq:  uint32(i + 1),
			TermFreq: uint64(i + 1),
		})
	}
	byPrefix := Build(entries, 5)
	if len(byPrefix["ab"]) > 5 {
		t.Fatalf("expected at most 5 entries under prefix %q, got %d", "ab", len(byPrefix["ab"]))
	}
}

func TestSuggestRejectsShortPrefix(t *testing.T) {
	idx := NewIndex(Build(sampleLexicon(), DefaultTopK))
	if got := idx.Suggest("m", 5); len(got) != 0 {
		t.Fatalf("expected empty result for 1-char prefix, got %+v", got)
	}
}

func TestSuggestCaseInsensitive(t *testing.T) {
	idx := NewIndex(Build(sampleLexicon(), DefaultTopK))
	lower := idx.Suggest("mac", 5)
	upper := idx.Suggest("Mac", 5)
	if len(lower) != len(upper) {
		t.Fatalf("expected identical results regardless of case, got %+v vs %+v", lower, upper)
	}
}

func TestSuggestRespectsLimit(t *testing.T) {
	idx := NewIndex(Build(sampleLexicon(), DefaultTopK))
	got := idx.Suggest("mac", 1)
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	byPrefix := Build(sampleLexicon(), DefaultTopK)

	var buf bytes.Buffer
	if err := WriteTo(&buf, byPrefix); err != nil {
		t.Fatal(err)
	}

	decoded, err := decode(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != len(byPrefix) {
		t.Fatalf("expected %d prefixes, got %d", len(byPrefix), len(decoded))
	}
	for prefix, entries := range byPrefix {
		got, ok := decoded[prefix]
		if !ok {
			t.Fatalf("prefix %q missing after round trip", prefix)
		}
		if len(got) != len(entries) {
			t.Fatalf("prefix %q: expected %d entries, got %d", prefix, len(entries), len(got))
		}
		for i := range entries {
			if got[i].Term != entries[i].Term || got[i].WordID != entries[i].WordID {
				t.Fatalf("prefix %q entry %d mismatch: got %+v, want %+v", prefix, i, got[i], entries[i])
			}
		}
	}
}
