package shard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/corpussearch/engine/internal/codec"
	"github.com/corpussearch/engine/internal/lexicon"
)

func TestShardIDDeterministic(t *testing.T) {
	a := ID("machine", 4)
	b := ID("machine", 4)
	if a != b {
		t.Fatalf("shard id not deterministic: %d vs %d", a, b)
	}
	if a >= 4 {
		t.Fatalf("shard id %d out of range [0,4)", a)
	}
}

func TestResidentReaderDecode(t *testing.T) {
	dir := t.TempDir()
	pl := codec.PostingList{{DocID: 1, TF: 2, Positions: []uint32{0, 5}}}
	blob := codec.Encode(pl)
	if err := os.WriteFile(filepath.Join(dir, "barrel_0.bin"), blob, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "barrel_1.bin"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	rr, err := NewResidentReader(dir, 2)
	if err != nil {
		t.Fatal(err)
	}
	lex := map[string]lexicon.Entry{
		"machine": {WordID: 0, Term: "machine", DocFreq: 1, ShardID: 0, Offset: 0, Bytes: uint64(len(blob))},
	}
	reader := NewReader(rr, lex)

	got, err := reader.Decode("machine")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].DocID != 1 {
		t.Fatalf("got %+v", got)
	}

	if _, err := reader.Decode("nope"); err == nil {
		t.Fatal("expected error for unknown term")
	}
}

func TestLRUReaderEvicts(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		os.WriteFile(filepath.Join(dir, "barrel_"+string(rune('0'+i))+".bin"), []byte{byte(i)}, 0o644)
	}
	lru := NewLRUReader(dir, 1)
	if _, err := lru.Load(0); err != nil {
		t.Fatal(err)
	}
	if _, err := lru.Load(1); err != nil {
		t.Fatal(err)
	}
	if lru.MemoryUsage() != 1 {
		t.Fatalf("expected exactly one resident shard, got usage %d", lru.MemoryUsage())
	}
}
