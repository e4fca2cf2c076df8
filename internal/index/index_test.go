package index

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/corpussearch/engine/internal/cleanedstream"
	"github.com/corpussearch/engine/internal/metadata"
	"github.com/corpussearch/engine/internal/query"
)

// sliceReader replays a fixed slice of records, satisfying RecordReader.
type sliceReader struct {
	recs []cleanedstream.Record
	i    int
}

func (r *sliceReader) Next() (cleanedstream.Record, error) {
	if r.i >= len(r.recs) {
		return cleanedstream.Record{}, io.EOF
	}
	rec := r.recs[r.i]
	r.i++
	return rec, nil
}

func toks(start int, terms ...string) []cleanedstream.Token {
	out := make([]cleanedstream.Token, len(terms))
	for i, t := range terms {
		out[i] = cleanedstream.Token{Term: t, Pos: uint32(start + i)}
	}
	return out
}

// fixtureCorpus builds a fixed four-document scenario corpus.
func fixtureCorpus() []cleanedstream.Record {
	return []cleanedstream.Record{
		{
			DocKey:  "d1",
			PubDate: "2023",
			Fields: []cleanedstream.Field{
				{Name: "title", Tokens: toks(0, "machine", "learning", "basics")},
				{Name: "body", Tokens: toks(3, "machine", "learning", "is", "a", "field", "of", "ai")},
			},
		},
		{
			DocKey:  "d2",
			PubDate: "2022",
			Fields: []cleanedstream.Field{
				{Name: "title", Tokens: toks(0, "deep", "learning")},
				{Name: "body", Tokens: toks(2, "deep", "learning", "uses", "neural", "networks")},
			},
		},
		{
			DocKey:  "d3",
			PubDate: "2021",
			Fields: []cleanedstream.Field{
				{Name: "body", Tokens: toks(0, "learning", "machine", "and", "machine", "vision", "overlap")},
			},
		},
		{
			DocKey:  "d4",
			PubDate: "2024",
			Fields: []cleanedstream.Field{
				{Name: "body", Tokens: toks(0, "cooking", "recipes", "and", "kitchen", "machines")},
			},
		},
	}
}

func buildFixtureIndex(t *testing.T) *Handle {
	t.Helper()
	outDir := filepath.Join(t.TempDir(), "index")

	reader := &sliceReader{recs: fixtureCorpus()}
	if _, err := Build(BuildConfig{OutDir: outDir, ShardCount: 4}, reader, metadata.Inline{}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	h, err := Open(outDir, 4, OpenOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return h
}

func TestBuildThenSearchOR(t *testing.T) {
	h := buildFixtureIndex(t)

	resp, err := h.Search(query.Plan{Mode: query.ModeOR, Terms: []string{"machine", "learning"}, TopK: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Hits) == 0 {
		t.Fatalf("expected at least one hit, got none")
	}
	seen := make(map[string]bool)
	for _, hit := range resp.Hits {
		seen[hit.DocKey] = true
	}
	if !seen["d1"] || !seen["d2"] || !seen["d3"] {
		t.Fatalf("expected d1, d2, d3 among hits, got %+v", resp.Hits)
	}
	if seen["d4"] {
		t.Fatalf("d4 mentions neither term and should not match OR, got %+v", resp.Hits)
	}
}

func TestBuildThenSearchAND(t *testing.T) {
	h := buildFixtureIndex(t)

	resp, err := h.Search(query.Plan{Mode: query.ModeAND, Terms: []string{"machine", "learning"}, TopK: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, hit := range resp.Hits {
		if hit.DocKey == "d2" {
			t.Fatalf("d2 only contains 'learning', not 'machine'; AND should exclude it")
		}
	}
}

func TestBuildThenSearchPhrase(t *testing.T) {
	h := buildFixtureIndex(t)

	resp, err := h.Search(query.Plan{Mode: query.ModePhrase, Terms: []string{"machine", "learning"}, TopK: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, hit := range resp.Hits {
		if hit.DocKey == "d3" {
			t.Fatalf("d3 never has 'learning' directly after 'machine'; unexpected phrase match")
		}
	}
	found := false
	for _, hit := range resp.Hits {
		if hit.DocKey == "d1" || hit.DocKey == "d2" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the exact phrase to match d1 or d2, got %+v", resp.Hits)
	}
}

func TestBuildThenAutocomplete(t *testing.T) {
	h := buildFixtureIndex(t)

	hits := h.Autocomplete("mach", 10)
	if len(hits) == 0 {
		t.Fatalf("expected autocomplete hits for prefix %q", "mach")
	}
	for _, hit := range hits {
		if len(hit.Term) < 4 || hit.Term[:4] != "mach" {
			t.Fatalf("suggestion %q does not start with prefix", hit.Term)
		}
	}
}

func TestBuildThenStats(t *testing.T) {
	h := buildFixtureIndex(t)

	stats := h.Stats()
	if stats.NDocs != 4 {
		t.Fatalf("expected 4 docs, got %d", stats.NDocs)
	}
	if stats.NTerms == 0 {
		t.Fatalf("expected a non-zero term count")
	}
	if stats.AvgDocLen <= 0 {
		t.Fatalf("expected a positive average doc length")
	}
}

func TestBuildResolvesInlineMetadata(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "index")
	reader := &sliceReader{recs: fixtureCorpus()}

	result, err := Build(BuildConfig{OutDir: outDir, ShardCount: 2}, reader, metadata.Inline{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.NDocs != 4 {
		t.Fatalf("expected 4 docs built, got %d", result.NDocs)
	}

	h, err := Open(outDir, 2, OpenOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	resp, err := h.Search(query.Plan{Mode: query.ModeOR, Terms: []string{"cooking"}, TopK: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Hits) != 1 || resp.Hits[0].DocKey != "d4" {
		t.Fatalf("expected d4 as the sole hit for 'cooking', got %+v", resp.Hits)
	}
}
