// Package docidmap implements the bidirectional doc_key <-> doc_id map
//. doc_id is a monotonically increasing
// uint32 starting at 1, assigned once per doc_key and stable for the
// lifetime of a build.
package docidmap

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Map holds the doc_key <-> doc_id bijection built during indexing and
// frozen before the query service starts.
type Map struct {
	byKey map[string]uint32
	byID  map[uint32]string
	next  uint32
}

// New returns an empty Map; the first Assign call returns doc_id 1.
func New() *Map {
	return &Map{
		byKey: make(map[string]uint32),
		byID:  make(map[uint32]string),
		next:  1,
	}
}

// Assign returns the doc_id for docKey, allocating the next one if this
// is the first time docKey has been seen.
func (m *Map) Assign(docKey string) uint32 {
	if id, ok := m.byKey[docKey]; ok {
		return id
	}
	id := m.next
	m.next++
	m.byKey[docKey] = id
	m.byID[id] = docKey
	return id
}

// Lookup returns the doc_id already assigned to docKey, if any.
func (m *Map) Lookup(docKey string) (uint32, bool) {
	id, ok := m.byKey[docKey]
	return id, ok
}

// Key returns the doc_key for a doc_id, if any.
func (m *Map) Key(docID uint32) (string, bool) {
	key, ok := m.byID[docID]
	return key, ok
}

// Len returns the number of assigned documents.
func (m *Map) Len() int {
	return len(m.byKey)
}

// WriteTo persists the map as docid_map.txt: one "doc_key\tdoc_id" row
// per document.
func (m *Map) WriteTo(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for key, id := range m.byKey {
		if _, err := fmt.Fprintf(bw, "%s\t%d\n", key, id); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Load reads a docid_map.txt previously written by WriteTo.
func Load(r io.Reader) (*Map, error) {
	m := New()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("docidmap: malformed row %q", line)
		}
		id, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("docidmap: malformed doc_id in row %q: %w", line, err)
		}
		key := parts[0]
		m.byKey[key] = uint32(id)
		m.byID[uint32(id)] = key
		if uint32(id) >= m.next {
			m.next = uint32(id) + 1
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadFile opens path and loads it via Load.
func LoadFile(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}
