package docidmap

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestAssignIsStableAndMonotonic(t *testing.T) {
	m := New()
	id1 := m.Assign("doc-a")
	id2 := m.Assign("doc-b")
	if id1 != 1 || id2 != 2 {
		t.Fatalf("expected ids 1,2, got %d,%d", id1, id2)
	}
	if again := m.Assign("doc-a"); again != id1 {
		t.Fatalf("re-assigning doc-a should return %d, got %d", id1, again)
	}
	if m.Len() != 2 {
		t.Fatalf("expected 2 distinct documents, got %d", m.Len())
	}
}

func TestLookupAndKey(t *testing.T) {
	m := New()
	id := m.Assign("doc-a")

	got, ok := m.Lookup("doc-a")
	if !ok || got != id {
		t.Fatalf("Lookup(doc-a) = %d, %v; want %d, true", got, ok, id)
	}
	key, ok := m.Key(id)
	if !ok || key != "doc-a" {
		t.Fatalf("Key(%d) = %q, %v; want doc-a, true", id, key, ok)
	}
	if _, ok := m.Lookup("missing"); ok {
		t.Fatalf("Lookup(missing) should report false")
	}
}

func TestWriteToThenLoadRoundTrip(t *testing.T) {
	m := New()
	m.Assign("doc-a")
	m.Assign("doc-b")
	m.Assign("doc-c")

	var buf bytes.Buffer
	if err := m.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != m.Len() {
		t.Fatalf("loaded %d documents, want %d", loaded.Len(), m.Len())
	}
	for _, key := range []string{"doc-a", "doc-b", "doc-c"} {
		wantID, _ := m.Lookup(key)
		gotID, ok := loaded.Lookup(key)
		if !ok || gotID != wantID {
			t.Fatalf("loaded Lookup(%q) = %d, %v; want %d, true", key, gotID, ok, wantID)
		}
	}
}

func TestLoadFileRoundTrip(t *testing.T) {
	m := New()
	m.Assign("doc-a")
	m.Assign("doc-b")

	path := filepath.Join(t.TempDir(), "docid_map.txt")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.WriteTo(f); err != nil {
		f.Close()
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != m.Len() {
		t.Fatalf("loaded %d documents, want %d", loaded.Len(), m.Len())
	}
}

func TestLoadRejectsMalformedRow(t *testing.T) {
	_, err := Load(bytes.NewBufferString("doc-a-with-no-tab-separator\n"))
	if err == nil {
		t.Fatalf("expected an error for a malformed row")
	}
}

func TestAssignAfterLoadContinuesFromMaxID(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("doc-a\t1\n")
	buf.WriteString("doc-b\t5\n")

	m, err := Load(&buf)
	if err != nil {
		t.Fatal(err)
	}
	next := m.Assign("doc-c")
	if next != 6 {
		t.Fatalf("expected next assigned id to be 6 (after max loaded id 5), got %d", next)
	}
}
