package shard

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/corpussearch/engine/internal/codec"
	"github.com/corpussearch/engine/internal/lexicon"
	apperrors "github.com/corpussearch/engine/pkg/errors"
)

// Loader is the posting reader's capability interface: load a
// shard's full byte range once, by ID. Reader is polymorphic over
// Loader implementations rather than over a class hierarchy —
// ResidentReader loads every shard at construction, LRUReader loads one
// on first use and may evict it later.
type Loader interface {
	Load(shardID uint32) ([]byte, error)
}

// Reader answers Decode(term) by combining a Loader with the lexicon's
// term -> (shard_id, offset, bytes) entries. It holds no other mutable
// state and is safe for concurrent use by many query goroutines.
type Reader struct {
	loader  Loader
	lexicon map[string]lexicon.Entry
}

// NewReader builds a Reader over any Loader implementation.
func NewReader(loader Loader, lexicon map[string]lexicon.Entry) *Reader {
	return &Reader{loader: loader, lexicon: lexicon}
}

// Decode returns the decoded posting list for term.
func (r *Reader) Decode(term string) (codec.PostingList, error) {
	entry, ok := r.lexicon[term]
	if !ok {
		return nil, apperrors.ErrTermNotFound
	}
	buf, err := r.loader.Load(entry.ShardID)
	if err != nil {
		return nil, err
	}
	if entry.Offset+entry.Bytes > uint64(len(buf)) {
		return nil, apperrors.ErrShardOutOfRange
	}
	pl, err := codec.Decode(buf[entry.Offset : entry.Offset+entry.Bytes])
	if err != nil {
		return nil, fmt.Errorf("%w: term %q: %v", apperrors.ErrCorruptIndex, term, err)
	}
	return pl, nil
}

// Lookup returns the lexicon entry for term without decoding it.
func (r *Reader) Lookup(term string) (lexicon.Entry, bool) {
	e, ok := r.lexicon[term]
	return e, ok
}

// ResidentReader is the "all shards resident" Loader variant: every
// barrel is read into memory once at construction. Default behavior for
// small corpora.
type ResidentReader struct {
	shards [][]byte
}

// NewResidentReader reads barrel_{0..nShards-1}.bin from dir into
// memory.
func NewResidentReader(dir string, nShards int) (*ResidentReader, error) {
	shards := make([][]byte, nShards)
	for i := 0; i < nShards; i++ {
		buf, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("barrel_%d.bin", i)))
		if err != nil {
			return nil, fmt.Errorf("shard: reading barrel_%d.bin: %w", i, err)
		}
		shards[i] = buf
	}
	return &ResidentReader{shards: shards}, nil
}

func (r *ResidentReader) Load(shardID uint32) ([]byte, error) {
	if int(shardID) >= len(r.shards) {
		return nil, apperrors.ErrShardOutOfRange
	}
	return r.shards[shardID], nil
}

// LoadLexiconMap reads lexicon.txt and indexes it by term, the form
// Reader needs.
func LoadLexiconMap(path string) (map[string]lexicon.Entry, error) {
	entries, err := lexicon.LoadLexicon(path)
	if err != nil {
		return nil, err
	}
	m := make(map[string]lexicon.Entry, len(entries))
	for _, e := range entries {
		m[e.Term] = e
	}
	return m, nil
}
