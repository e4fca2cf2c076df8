package spimi

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/corpussearch/engine/internal/cleanedstream"
	"github.com/corpussearch/engine/internal/docidmap"
	"github.com/corpussearch/engine/internal/metadata"
)

func record(key string, terms ...string) cleanedstream.Record {
	tokens := make([]cleanedstream.Token, len(terms))
	for i, t := range terms {
		tokens[i] = cleanedstream.Token{Term: t, Pos: uint32(i)}
	}
	return cleanedstream.Record{
		DocKey: key,
		Fields: []cleanedstream.Field{{Name: "body", Tokens: tokens}},
	}
}

func TestBuilderFlushOrdersTermsLexicographically(t *testing.T) {
	dir := t.TempDir()
	b := New(Config{OutDir: dir}, docidmap.New(), nil)

	if err := b.Add(record("d1", "zebra", "apple", "mango")); err != nil {
		t.Fatal(err)
	}
	paths, err := b.Finish()
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected 1 block, got %d", len(paths))
	}

	f, err := os.Open(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var terms []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		term := strings.SplitN(line, "\t", 2)[0]
		terms = append(terms, term)
	}
	want := []string{"apple", "mango", "zebra"}
	if len(terms) != len(want) {
		t.Fatalf("got %v, want %v", terms, want)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Fatalf("got %v, want %v", terms, want)
		}
	}
}

func TestBuilderForwardFileHasOneRecordPerDoc(t *testing.T) {
	dir := t.TempDir()
	b := New(Config{OutDir: dir}, docidmap.New(), nil)
	b.Add(record("d1", "a", "b"))
	b.Add(record("d2", "b", "c"))
	if _, err := b.Finish(); err != nil {
		t.Fatal(err)
	}

	fwd, err := os.ReadFile(filepath.Join(dir, "block_0.fwd"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(fwd)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 forward records, got %d", len(lines))
	}
}

func TestBuilderDropsAllDigitTokensWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	b := New(Config{OutDir: dir, DropAllDigitTokens: true}, docidmap.New(), nil)
	b.Add(record("d1", "2024", "paper"))
	paths, err := b.Finish()
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "2024") {
		t.Fatalf("expected all-digit token to be dropped, got %q", data)
	}
}

func TestEstimatedBytesGrowsWithPostings(t *testing.T) {
	b := New(Config{OutDir: t.TempDir()}, docidmap.New(), nil)
	before := b.EstimatedBytes()
	b.Add(record("d1", "alpha", "beta", "gamma"))
	if b.EstimatedBytes() <= before {
		t.Fatalf("expected estimate to grow after adding postings")
	}
}

func TestResolveMetadataPrefersInlineOverSource(t *testing.T) {
	src := metadata.Map{"d1": {Title: "from source", PubDate: "2000"}}
	b := New(Config{OutDir: t.TempDir()}, docidmap.New(), src)

	rec := record("d1", "a")
	rec.PubDate = "2024"
	if err := b.Add(rec); err != nil {
		t.Fatal(err)
	}

	got := b.ResolvedMetadata()["d1"]
	if got.PubDate != "2024" {
		t.Fatalf("expected inline pub_date to take precedence, got %+v", got)
	}
}

func TestResolveMetadataFallsBackToSource(t *testing.T) {
	src := metadata.Map{"d1": {Title: "from source", PubDate: "2000"}}
	b := New(Config{OutDir: t.TempDir()}, docidmap.New(), src)

	if err := b.Add(record("d1", "a")); err != nil {
		t.Fatal(err)
	}

	got := b.ResolvedMetadata()["d1"]
	if got.PubDate != "2000" || got.Title != "from source" {
		t.Fatalf("expected metadata resolved from source, got %+v", got)
	}
}

func TestFlushIsNoOpWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	b := New(Config{OutDir: dir}, docidmap.New(), nil)
	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected no files written for an empty flush, got %d", len(entries))
	}
}
