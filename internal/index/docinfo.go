package index

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/corpussearch/engine/internal/docidmap"
	"github.com/corpussearch/engine/internal/metadata"
	"github.com/corpussearch/engine/internal/query"
)

// loadDocLengths reads forward_index and returns each document's length,
// keyed by doc_key as it appears on disk — the caller resolves doc_key to
// doc_id via the docID map.
func loadDocLengths(path string) (map[string]uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	lengths := make(map[string]uint32)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 64<<20)
	for sc.Scan() {
		var rec struct {
			DocKey   string `json:"doc_key"`
			Postings []struct {
				Freq uint32 `json:"freq"`
			} `json:"postings"`
		}
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		var total uint32
		for _, p := range rec.Postings {
			total += p.Freq
		}
		lengths[rec.DocKey] = total
	}
	return lengths, sc.Err()
}

// docInfoProvider implements query.DocInfoProvider over the docID map,
// per-doc_key lengths derived from the forward index, and resolved
// metadata — all frozen, read-only structures loaded once at Open time.
type docInfoProvider struct {
	docIDs  *docidmap.Map
	docLens map[string]uint32
	docMeta metadata.Map
}

func newDocInfoProvider(docIDs *docidmap.Map, docLensByKey map[string]uint32, docMeta metadata.Map) *docInfoProvider {
	return &docInfoProvider{docIDs: docIDs, docLens: docLensByKey, docMeta: docMeta}
}

func (p *docInfoProvider) DocInfo(docID uint32) (query.DocInfo, bool) {
	key, ok := p.docIDs.Key(docID)
	if !ok {
		return query.DocInfo{}, false
	}
	rec, _ := p.docMeta.Lookup(key)
	return query.DocInfo{DocLen: p.docLens[key], PubDate: rec.PubDate}, true
}

func (p *docInfoProvider) DocKey(docID uint32) (string, bool) {
	return p.docIDs.Key(docID)
}
