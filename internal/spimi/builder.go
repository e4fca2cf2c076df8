// Package spimi implements the SPIMI-style block builder and flusher:
// bounded-memory accumulation of an inverted map over a window of the
// document stream, flushed to disk as a sorted run whenever the
// estimated footprint crosses a budget.
package spimi

import (
	"fmt"
	"log/slog"
	"sort"
	"unicode"

	"github.com/corpussearch/engine/internal/cleanedstream"
	"github.com/corpussearch/engine/internal/docidmap"
	"github.com/corpussearch/engine/internal/metadata"
	applog "github.com/corpussearch/engine/pkg/logger"
)

// Config controls flush behavior and output location.
type Config struct {
	// OutDir is the staging directory block_*.inv/.fwd files land in.
	OutDir string
	// FlushBudgetBytes bounds the estimated in-memory footprint before a
	// flush is forced. Default 256 MiB.
	FlushBudgetBytes int64
	// DropAllDigitTokens drops tokens consisting entirely of digits.
	DropAllDigitTokens bool
}

func (c Config) withDefaults() Config {
	if c.FlushBudgetBytes <= 0 {
		c.FlushBudgetBytes = 256 << 20
	}
	return c
}

// bytesPerPostingDoc and bytesPerPosition approximate the in-memory cost
// of one (term, docID) posting entry and one position, enough to decide
// when to flush without an exact accounting pass.
const (
	bytesPerPostingDoc = 24
	bytesPerPosition   = 6
)

// forwardRecord is one document's per-term position lists, held in
// memory until flush writes it to block_b.fwd.
type forwardRecord struct {
	DocKey string
	Terms  map[string][]uint32
}

// Builder accumulates an inverted map term -> docID -> positions plus a
// forward record per document, flushing to numbered blocks under
// cfg.OutDir as the estimated footprint crosses the budget.
type Builder struct {
	cfg      Config
	docIDs   *docidmap.Map
	metadata metadata.Source

	inverted      map[string]map[uint32][]uint32
	forward       []forwardRecord
	resolvedMeta  map[string]metadata.Record
	positionCount int64
	postingCount  int64

	blockIndex int
	state      State
	log        *slog.Logger

	blocksWritten []string // .inv paths, in flush order
}

// New creates a Builder. docIDs must be fresh or already seeded from a
// prior build; metaSrc resolves per-document metadata when a record
// doesn't carry it inline.
func New(cfg Config, docIDs *docidmap.Map, metaSrc metadata.Source) *Builder {
	if metaSrc == nil {
		metaSrc = metadata.Inline{}
	}
	return &Builder{
		cfg:          cfg.withDefaults(),
		docIDs:       docIDs,
		metadata:     metaSrc,
		inverted:     make(map[string]map[uint32][]uint32),
		resolvedMeta: make(map[string]metadata.Record),
		state:        StateBuilding,
		log:          applog.WithComponent("spimi.builder"),
	}
}

// Add ingests one cleaned record, assigning it a doc_id and folding its
// terms into the in-memory inverted map. It returns an error only if
// called while a flush is in progress or after Finish.
func (b *Builder) Add(rec cleanedstream.Record) error {
	if b.state != StateBuilding {
		return fmt.Errorf("spimi: cannot add document in state %s", b.state)
	}

	docID := b.docIDs.Assign(rec.DocKey)
	b.resolveMetadata(rec)

	collected := make(map[string][]uint32)
	for _, tok := range rec.Terms() {
		term := tok.Term
		if term == "" {
			continue
		}
		if b.cfg.DropAllDigitTokens && isAllDigits(term) {
			continue
		}
		collected[term] = append(collected[term], tok.Pos)
	}

	for term, positions := range collected {
		sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
		positions = dedupeSorted(positions)

		perDoc, ok := b.inverted[term]
		if !ok {
			perDoc = make(map[uint32][]uint32)
			b.inverted[term] = perDoc
		}
		if _, exists := perDoc[docID]; !exists {
			b.postingCount++
		}
		perDoc[docID] = positions
		b.positionCount += int64(len(positions))
	}

	b.forward = append(b.forward, forwardRecord{DocKey: rec.DocKey, Terms: collected})
	return nil
}

// resolveMetadata records rec's metadata once per doc_key: inline
// fields take precedence; otherwise it falls back to the metadata
// source collaborator, resolved at block-building time so
// the query service never needs to repeat these lookups.
func (b *Builder) resolveMetadata(rec cleanedstream.Record) {
	if _, ok := b.resolvedMeta[rec.DocKey]; ok {
		return
	}
	if rec.Title != "" || rec.Authors != "" || rec.PubDate != "" {
		b.resolvedMeta[rec.DocKey] = metadata.Record{Title: rec.Title, Authors: rec.Authors, PubDate: rec.PubDate}
		return
	}
	if m, ok := b.metadata.Lookup(rec.DocKey); ok {
		b.resolvedMeta[rec.DocKey] = m
	}
}

// ResolvedMetadata returns every doc_key's resolved metadata accumulated
// across the build so far, for the pipeline to persist once indexing
// completes.
func (b *Builder) ResolvedMetadata() map[string]metadata.Record {
	return b.resolvedMeta
}

// EstimatedBytes approximates the current in-memory footprint, growing
// with the number of distinct (term, docID) postings and the total
// position count accumulated so far.
func (b *Builder) EstimatedBytes() int64 {
	return b.postingCount*bytesPerPostingDoc + b.positionCount*bytesPerPosition
}

// ShouldFlush reports whether EstimatedBytes has crossed the configured
// budget.
func (b *Builder) ShouldFlush() bool {
	return b.EstimatedBytes() >= b.cfg.FlushBudgetBytes
}

// Flush writes the current in-memory block to block_<n>.inv/.fwd under
// cfg.OutDir, in lexicographic term order, and resets the in-memory
// state for the next block. It is a no-op if nothing has been added
// since the last flush.
func (b *Builder) Flush() error {
	if b.state != StateBuilding {
		return fmt.Errorf("spimi: cannot flush in state %s", b.state)
	}
	return b.flushLocked(StateBuilding)
}

// flushLocked performs the actual flush, returning to returnTo
// afterwards instead of unconditionally StateBuilding so Finish can land
// back in FINAL_FLUSH -> DONE without passing through BUILDING.
func (b *Builder) flushLocked(returnTo State) error {
	if len(b.inverted) == 0 && len(b.forward) == 0 {
		return nil
	}
	b.state = StateFlushing
	defer func() { b.state = returnTo }()

	invPath, fwdPath, err := writeBlock(b.cfg.OutDir, b.blockIndex, b.inverted, b.forward)
	if err != nil {
		return fmt.Errorf("spimi: flushing block %d: %w", b.blockIndex, err)
	}
	b.log.Info("flushed block",
		"block", b.blockIndex,
		"terms", len(b.inverted),
		"docs", len(b.forward),
		"estimated_bytes", b.EstimatedBytes(),
	)
	b.blocksWritten = append(b.blocksWritten, invPath)
	_ = fwdPath

	b.blockIndex++
	b.inverted = make(map[string]map[uint32][]uint32)
	b.forward = nil
	b.postingCount = 0
	b.positionCount = 0
	return nil
}

// Finish flushes any remaining in-memory block (the FINAL_FLUSH
// transition) and moves the builder to DONE. It returns the list of
// written block .inv files, in flush order, for the merger to consume.
func (b *Builder) Finish() ([]string, error) {
	if b.state == StateDone {
		return b.blocksWritten, nil
	}
	b.state = StateFinalFlush
	if err := b.flushLocked(StateFinalFlush); err != nil {
		return nil, err
	}
	b.state = StateDone
	return b.blocksWritten, nil
}

// State returns the builder's current lifecycle state.
func (b *Builder) State() State {
	return b.state
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func dedupeSorted(positions []uint32) []uint32 {
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
