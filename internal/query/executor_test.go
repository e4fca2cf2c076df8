package query

import (
	"testing"

	"github.com/corpussearch/engine/internal/codec"
	"github.com/corpussearch/engine/internal/merge"
	"github.com/corpussearch/engine/internal/shard"
)

// fakeLoader backs every lexicon entry with shard 0 of a single
// concatenated buffer, built by buildReader below.
type fakeLoader struct {
	buf []byte
}

func (f *fakeLoader) Load(shardID uint32) ([]byte, error) {
	return f.buf, nil
}

// fakeDocInfo implements DocInfoProvider over an in-memory table, for
// this fixed scenario corpus:
//
//	d1 "machine learning is useful"      pub_date=2024  len=4
//	d2 "deep learning and neural networks" pub_date=2020 len=5
//	d3 "classical machine methods"        pub_date=2005  len=3
//	d4 "neural architecture search"       pub_date=2024  len=3
type fakeDocInfo struct {
	info map[uint32]DocInfo
	keys map[uint32]string
}

func (f fakeDocInfo) DocInfo(docID uint32) (DocInfo, bool) {
	v, ok := f.info[docID]
	return v, ok
}

func (f fakeDocInfo) DocKey(docID uint32) (string, bool) {
	v, ok := f.keys[docID]
	return v, ok
}

func buildReader(t *testing.T, postings map[string]codec.PostingList) *shard.Reader {
	t.Helper()
	loader := &fakeLoader{}
	lexicon := make(map[string]merge.LexiconEntry)
	for term, pl := range postings {
		blob := codec.Encode(pl)
		lexicon[term] = merge.LexiconEntry{
			Term:    term,
			DocFreq: uint32(len(pl)),
			Offset:  uint64(len(loader.buf)),
			Bytes:   uint64(len(blob)),
			ShardID: 0,
		}
		loader.buf = append(loader.buf, blob...)
	}
	return shard.NewReader(loader, lexicon)
}

func corpusD() (map[string]codec.PostingList, fakeDocInfo) {
	postings := map[string]codec.PostingList{
		"machine":  {{DocID: 1, TF: 1, Positions: []uint32{0}}, {DocID: 3, TF: 1, Positions: []uint32{1}}},
		"learning": {{DocID: 1, TF: 1, Positions: []uint32{1}}, {DocID: 2, TF: 1, Positions: []uint32{1}}},
		"is":       {{DocID: 1, TF: 1, Positions: []uint32{2}}},
		"useful":   {{DocID: 1, TF: 1, Positions: []uint32{3}}},
		"deep":     {{DocID: 2, TF: 1, Positions: []uint32{0}}},
		"neural":   {{DocID: 2, TF: 1, Positions: []uint32{3}}, {DocID: 4, TF: 1, Positions: []uint32{0}}},
		"networks": {{DocID: 2, TF: 1, Positions: []uint32{4}}},
		"classical": {{DocID: 3, TF: 1, Positions: []uint32{0}}},
		"methods":   {{DocID: 3, TF: 1, Positions: []uint32{2}}},
		"architecture": {{DocID: 4, TF: 1, Positions: []uint32{1}}},
		"search":       {{DocID: 4, TF: 1, Positions: []uint32{2}}},
	}
	info := fakeDocInfo{
		info: map[uint32]DocInfo{
			1: {DocLen: 4, PubDate: "2024"},
			2: {DocLen: 5, PubDate: "2020"},
			3: {DocLen: 3, PubDate: "2005"},
			4: {DocLen: 3, PubDate: "2024"},
		},
		keys: map[uint32]string{1: "d1", 2: "d2", 3: "d3", 4: "d4"},
	}
	return postings, info
}

func newExecutor(t *testing.T) *Executor {
	postings, info := corpusD()
	reader := buildReader(t, postings)
	cfg := DefaultRankerConfig(2026)
	return New(reader, info, cfg, 4, 3.75)
}

func hasDocKey(hits []Hit, key string) bool {
	for _, h := range hits {
		if h.DocKey == key {
			return true
		}
	}
	return false
}

// S1
func TestSearchOR_MachineLearning(t *testing.T) {
	e := newExecutor(t)
	resp, err := e.Search(Plan{Terms: []string{"machine", "learning"}, Mode: ModeOR, TopK: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Hits) == 0 || resp.Hits[0].DocKey != "d1" {
		t.Fatalf("expected d1 to rank first, got %+v", resp.Hits)
	}
	for _, want := range []string{"d1", "d2", "d3"} {
		if !hasDocKey(resp.Hits, want) {
			t.Fatalf("expected %s in hits, got %+v", want, resp.Hits)
		}
	}
}

// S2
func TestSearchAND_MachineLearning(t *testing.T) {
	e := newExecutor(t)
	resp, err := e.Search(Plan{Terms: []string{"machine", "learning"}, Mode: ModeAND, TopK: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Hits) != 1 || resp.Hits[0].DocKey != "d1" {
		t.Fatalf("expected exactly {d1}, got %+v", resp.Hits)
	}
}

// S3
func TestSearchPhrase_MachineLearning(t *testing.T) {
	e := newExecutor(t)
	resp, err := e.Search(Plan{Terms: []string{"machine", "learning"}, Mode: ModePhrase, TopK: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Hits) != 1 || resp.Hits[0].DocKey != "d1" {
		t.Fatalf("expected exactly {d1}, got %+v", resp.Hits)
	}

	resp2, err := e.Search(Plan{Terms: []string{"learning", "machine"}, Mode: ModePhrase, TopK: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp2.Hits) != 0 {
		t.Fatalf("expected empty result for reversed phrase, got %+v", resp2.Hits)
	}
}

// S4
func TestSearchOR_UnknownTerm(t *testing.T) {
	e := newExecutor(t)
	resp, err := e.Search(Plan{Terms: []string{"quantum"}, Mode: ModeOR, TopK: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Hits) != 0 {
		t.Fatalf("expected no hits, got %+v", resp.Hits)
	}
}

// S5
func TestSearchPhrase_UnknownTermYieldsEmptyNotError(t *testing.T) {
	e := newExecutor(t)
	resp, err := e.Search(Plan{Terms: []string{"quantum", "learning"}, Mode: ModePhrase, TopK: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Hits) != 0 {
		t.Fatalf("expected empty result, got %+v", resp.Hits)
	}
}

// S6: BM25 ties resolved by recency — give d3 and d4 an identical
// additional posting for "search", same tf, same doc_len, differing only
// in pub_date. d4 (2024) must outrank d3 (2005).
func TestRecencyBreaksBM25Tie(t *testing.T) {
	postings := map[string]codec.PostingList{
		"search": {
			{DocID: 3, TF: 1, Positions: []uint32{0}},
			{DocID: 4, TF: 1, Positions: []uint32{0}},
		},
	}
	info := fakeDocInfo{
		info: map[uint32]DocInfo{
			3: {DocLen: 3, PubDate: "2005"},
			4: {DocLen: 3, PubDate: "2024"},
		},
		keys: map[uint32]string{3: "d3", 4: "d4"},
	}
	reader := buildReader(t, postings)
	e := New(reader, info, DefaultRankerConfig(2026), 2, 3)

	resp, err := e.Search(Plan{Terms: []string{"search"}, Mode: ModeOR, TopK: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Hits) != 2 {
		t.Fatalf("expected 2 hits, got %+v", resp.Hits)
	}
	if resp.Hits[0].DocKey != "d4" {
		t.Fatalf("expected d4 (more recent) to rank first on a BM25 tie, got %+v", resp.Hits)
	}
}

func TestANDSoundness(t *testing.T) {
	e := newExecutor(t)
	resp, err := e.Search(Plan{Terms: []string{"neural", "architecture"}, Mode: ModeAND, TopK: 10})
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range resp.Hits {
		if h.PerTermTF["neural"] == 0 || h.PerTermTF["architecture"] == 0 {
			t.Fatalf("AND result missing a required term's tf: %+v", h)
		}
	}
}
