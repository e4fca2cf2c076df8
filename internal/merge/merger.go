package merge

import (
	"container/heap"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/corpussearch/engine/internal/codec"
	"github.com/corpussearch/engine/internal/lexicon"
	"github.com/corpussearch/engine/internal/shard"
	applog "github.com/corpussearch/engine/pkg/logger"
)

// Config controls merge output shape.
type Config struct {
	// OutDir is the final (not staged) output directory.
	OutDir string
	// NShards is N_SHARDS.
	NShards int
}

func (c Config) withDefaults() Config {
	if c.NShards <= 0 {
		c.NShards = shard.DefaultShardCount
	}
	return c
}

// runHeap orders open runs by their current term, for a standard k-way
// merge.
type runHeap []*run

func (h runHeap) Len() int            { return len(h) }
func (h runHeap) Less(i, j int) bool  { return h[i].term < h[j].term }
func (h runHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *runHeap) Push(x interface{}) { *h = append(*h, x.(*run)) }
func (h *runHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Result summarizes a completed merge.
type Result struct {
	NTerms    int
	NPostings int
	// TermToWordID is handed to the forward remapper in-process;
	// terms_list.txt on disk carries the same mapping for other tools.
	TermToWordID map[string]uint32
}

// Merge runs the external k-way merge over blockPaths (block_*.inv
// files, each already term-sorted by the flusher) and writes
// barrel_{0..N-1}.bin, lexicon.txt, terms_list.txt, and shards.txt into
// a freshly staged directory, atomically renamed to cfg.OutDir on
// success. blockPaths is left on disk for the caller to unlink once
// every stage of the pipeline succeeds. This is the merge-only entry
// point; a caller staging further artifacts alongside the merge output
// before exposing any of it (internal/index.Build does, for the
// forward index and docID map) should use WriteInto instead, so the
// directory only becomes visible once everything is in it.
func Merge(cfg Config, blockPaths []string) (Result, error) {
	cfg = cfg.withDefaults()
	log := applog.WithComponent("merge.merger")

	staging, err := os.MkdirTemp(filepath.Dir(cfg.OutDir), ".merge-staging-*")
	if err != nil {
		return Result{}, fmt.Errorf("merge: creating staging dir: %w", err)
	}
	defer os.RemoveAll(staging) // no-op once renamed away

	result, err := mergeInto(staging, cfg.NShards, blockPaths, log)
	if err != nil {
		return Result{}, err
	}

	if err := os.RemoveAll(cfg.OutDir); err != nil && !os.IsNotExist(err) {
		return Result{}, fmt.Errorf("merge: clearing previous output dir: %w", err)
	}
	if err := os.Rename(staging, cfg.OutDir); err != nil {
		return Result{}, fmt.Errorf("merge: renaming staged output into place: %w", err)
	}
	log.Info("merge complete", "terms", result.NTerms, "postings", result.NPostings, "out_dir", cfg.OutDir)
	return result, nil
}

// WriteInto runs the same external k-way merge as Merge but writes
// barrel_*.bin, lexicon.txt, terms_list.txt, and shards.txt directly
// into stagingDir (caller-owned, already created) without removing or
// renaming anything. Callers that need to stage further artifacts
// alongside the merge output before one shared atomic rename — the
// forward index, docid_map.txt, doc_meta.txt, the autocomplete index —
// use this instead of Merge, so the whole build becomes visible in a
// single rename rather than the merge's own rename exposing a
// directory the rest of the pipeline hasn't finished writing into yet.
func WriteInto(stagingDir string, nShards int, blockPaths []string) (Result, error) {
	if nShards <= 0 {
		nShards = shard.DefaultShardCount
	}
	log := applog.WithComponent("merge.merger")
	return mergeInto(stagingDir, nShards, blockPaths, log)
}

func mergeInto(stagingDir string, nShards int, blockPaths []string, log *slog.Logger) (Result, error) {
	runs := make([]*run, 0, len(blockPaths))
	defer func() {
		for _, r := range runs {
			r.close()
		}
	}()
	for _, p := range blockPaths {
		r, err := openRun(p)
		if err != nil {
			return Result{}, err
		}
		runs = append(runs, r)
	}

	h := &runHeap{}
	for _, r := range runs {
		if !r.done {
			heap.Push(h, r)
		}
	}

	shardFiles := make([]*os.File, nShards)
	shardOffsets := make([]uint64, nShards)
	for i := 0; i < nShards; i++ {
		f, err := os.Create(filepath.Join(stagingDir, fmt.Sprintf("barrel_%d.bin", i)))
		if err != nil {
			return Result{}, fmt.Errorf("merge: creating barrel_%d.bin: %w", i, err)
		}
		shardFiles[i] = f
	}
	defer func() {
		for _, f := range shardFiles {
			if f != nil {
				f.Close()
			}
		}
	}()

	var entries []LexiconEntry
	termToWordID := make(map[string]uint32)
	var nextWordID uint32

	for h.Len() > 0 {
		term := (*h)[0].term

		contributing := make([]*run, 0, 4)
		for h.Len() > 0 && (*h)[0].term == term {
			contributing = append(contributing, heap.Pop(h).(*run))
		}

		pl, err := mergePostings(term, contributing)
		if err != nil {
			return Result{}, fmt.Errorf("merge: term %q: %w", term, err)
		}

		blob := codec.Encode(pl)
		shardID := shard.ID(term, nShards)
		offset := shardOffsets[shardID]
		if _, err := shardFiles[shardID].Write(blob); err != nil {
			return Result{}, fmt.Errorf("merge: writing shard %d: %w", shardID, err)
		}
		shardOffsets[shardID] += uint64(len(blob))

		var termFreq uint64
		for _, p := range pl {
			termFreq += uint64(p.TF)
		}

		wordID := nextWordID
		nextWordID++
		termToWordID[term] = wordID
		entries = append(entries, LexiconEntry{
			WordID:   wordID,
			Term:     term,
			DocFreq:  uint32(len(pl)),
			TermFreq: termFreq,
			Offset:   offset,
			Bytes:    uint64(len(blob)),
			ShardID:  shardID,
		})

		for _, r := range contributing {
			if err := r.advance(); err != nil {
				return Result{}, err
			}
			if !r.done {
				heap.Push(h, r)
			}
		}
	}

	for i, f := range shardFiles {
		if err := f.Close(); err != nil {
			return Result{}, fmt.Errorf("merge: closing barrel_%d.bin: %w", i, err)
		}
		shardFiles[i] = nil
	}

	if err := lexicon.WriteLexicon(filepath.Join(stagingDir, "lexicon.txt"), entries); err != nil {
		return Result{}, err
	}
	if err := lexicon.WriteTermsList(filepath.Join(stagingDir, "terms_list.txt"), entries); err != nil {
		return Result{}, err
	}
	if err := lexicon.WriteShardsDebug(filepath.Join(stagingDir, "shards.txt"), nShards, entries); err != nil {
		return Result{}, err
	}

	nPostings := 0
	for _, e := range entries {
		nPostings += int(e.DocFreq)
	}
	return Result{NTerms: len(entries), NPostings: nPostings, TermToWordID: termToWordID}, nil
}

// mergePostings combines the same term's posting fragments from every
// contributing run: same-docID entries have their positions
// concatenated, sorted, and deduplicated; the result is sorted by docID
// ascending.
func mergePostings(term string, contributing []*run) (codec.PostingList, error) {
	byDoc := make(map[uint32][]uint32)
	for _, r := range contributing {
		for _, bp := range r.postings {
			byDoc[bp.DocID] = append(byDoc[bp.DocID], bp.Positions...)
		}
	}

	docIDs := make([]uint32, 0, len(byDoc))
	for docID := range byDoc {
		docIDs = append(docIDs, docID)
	}
	sort.Slice(docIDs, func(i, j int) bool { return docIDs[i] < docIDs[j] })

	pl := make(codec.PostingList, 0, len(docIDs))
	for _, docID := range docIDs {
		positions := byDoc[docID]
		sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
		positions = dedupePositions(positions)
		pl = append(pl, codec.Posting{DocID: docID, TF: uint32(len(positions)), Positions: positions})
	}
	return pl, nil
}

func dedupePositions(positions []uint32) []uint32 {
	out := positions[:0:0]
	var prev uint32
	for i, p := range positions {
		if i > 0 && p == prev {
			continue
		}
		out = append(out, p)
		prev = p
	}
	return out
}
