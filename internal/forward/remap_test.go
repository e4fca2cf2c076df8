package forward

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestRemapRewritesTermsToWordIDs(t *testing.T) {
	dir := t.TempDir()
	fwdPath := filepath.Join(dir, "block_0.fwd")
	f, err := os.Create(fwdPath)
	if err != nil {
		t.Fatal(err)
	}
	enc := json.NewEncoder(f)
	enc.Encode(fwdJSONRecord{DocKey: "d1", Terms: map[string][]uint32{"machine": {0}, "unknown": {1}}})
	f.Close()

	outPath := filepath.Join(dir, "forward_index")
	err = Remap([]string{fwdPath}, map[string]uint32{"machine": 7}, outPath)
	if err != nil {
		t.Fatal(err)
	}

	out, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()
	sc := bufio.NewScanner(out)
	if !sc.Scan() {
		t.Fatal("expected one forward record")
	}
	var rec Record
	if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.DocKey != "d1" {
		t.Fatalf("got doc_key %q", rec.DocKey)
	}
	if len(rec.Postings) != 1 || rec.Postings[0].WordID != 7 {
		t.Fatalf("expected unknown term dropped and machine remapped to word_id 7, got %+v", rec.Postings)
	}
}
