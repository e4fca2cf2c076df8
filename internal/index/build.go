package index

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/corpussearch/engine/internal/autocomplete"
	"github.com/corpussearch/engine/internal/cleanedstream"
	"github.com/corpussearch/engine/internal/docidmap"
	"github.com/corpussearch/engine/internal/forward"
	"github.com/corpussearch/engine/internal/merge"
	"github.com/corpussearch/engine/internal/metadata"
	"github.com/corpussearch/engine/internal/shard"
	"github.com/corpussearch/engine/internal/spimi"
	applog "github.com/corpussearch/engine/pkg/logger"
	"github.com/corpussearch/engine/pkg/metrics"
)

// RecordReader is the consumed-interface seam: Next returns
// the next cleaned record, or io.EOF when the stream is exhausted.
// cleanedstream.JSONLReader and cleanedstream.KafkaReader both satisfy
// it.
type RecordReader interface {
	Next() (cleanedstream.Record, error)
}

// BuildConfig controls one end-to-end indexing run: block building,
// merging, forward-index remapping, and autocomplete index construction.
type BuildConfig struct {
	OutDir             string
	FlushBudgetBytes   int64
	ShardCount         int
	DropAllDigitTokens bool
	AutocompleteTopK   int
	// Metrics is optional; nil disables indexing-throughput instrumentation.
	Metrics *metrics.Metrics
}

func (c BuildConfig) withDefaults() BuildConfig {
	if c.ShardCount <= 0 {
		c.ShardCount = shard.DefaultShardCount
	}
	if c.AutocompleteTopK <= 0 {
		c.AutocompleteTopK = autocomplete.DefaultTopK
	}
	return c
}

// BuildResult summarizes a completed build for the caller to log or
// report.
type BuildResult struct {
	NDocs     int
	NTerms    int
	NBlocks   int
	Malformed int
}

// Build runs the full offline indexing pipeline: SPIMI block building
// over every record reader returns, the external k-way merge, the
// forward index remapper, persisting the resolved document metadata,
// and the autocomplete index build. Every artifact — barrels, lexicon,
// forward index, docid_map.txt, doc_meta.txt, autocomplete.idx — is
// written into one staging directory, which is renamed onto cfg.OutDir
// only once all of them are in place. A crash at any point before that
// single rename leaves cfg.OutDir exactly as it was (absent, or the
// previous completed build); it never leaves a partially-written index
// visible for a concurrent Open to trip over.
func Build(cfg BuildConfig, reader RecordReader, metaSrc metadata.Source) (BuildResult, error) {
	cfg = cfg.withDefaults()
	log := applog.WithComponent("index.build")

	blockDir, err := os.MkdirTemp(filepath.Dir(cfg.OutDir), ".blocks-*")
	if err != nil {
		return BuildResult{}, fmt.Errorf("index: creating block staging dir: %w", err)
	}
	defer os.RemoveAll(blockDir)

	outStaging, err := os.MkdirTemp(filepath.Dir(cfg.OutDir), ".index-*")
	if err != nil {
		return BuildResult{}, fmt.Errorf("index: creating output staging dir: %w", err)
	}
	defer os.RemoveAll(outStaging) // no-op once renamed onto cfg.OutDir

	docIDs := docidmap.New()
	builder := spimi.New(spimi.Config{
		OutDir:             blockDir,
		FlushBudgetBytes:   cfg.FlushBudgetBytes,
		DropAllDigitTokens: cfg.DropAllDigitTokens,
	}, docIDs, metaSrc)

	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return BuildResult{}, fmt.Errorf("index: reading cleaned stream: %w", err)
		}
		if err := builder.Add(rec); err != nil {
			return BuildResult{}, fmt.Errorf("index: adding record %q: %w", rec.DocKey, err)
		}
		if cfg.Metrics != nil {
			cfg.Metrics.DocsIndexedTotal.Inc()
		}
		if builder.ShouldFlush() {
			if err := builder.Flush(); err != nil {
				return BuildResult{}, fmt.Errorf("index: flushing block: %w", err)
			}
		}
	}

	blockPaths, err := builder.Finish()
	if err != nil {
		return BuildResult{}, fmt.Errorf("index: finishing build: %w", err)
	}
	log.Info("spimi build complete", "blocks", len(blockPaths), "docs", docIDs.Len())
	if cfg.Metrics != nil {
		cfg.Metrics.BlocksFlushedTotal.Add(float64(len(blockPaths)))
	}

	mergeStart := time.Now()
	mergeResult, err := merge.WriteInto(outStaging, cfg.ShardCount, blockPaths)
	if err != nil {
		return BuildResult{}, fmt.Errorf("index: merging blocks: %w", err)
	}
	if cfg.Metrics != nil {
		cfg.Metrics.MergeDuration.Observe(time.Since(mergeStart).Seconds())
		cfg.Metrics.MergedTermsTotal.Add(float64(mergeResult.NTerms))
	}

	fwdBlockPaths := make([]string, len(blockPaths))
	for i, p := range blockPaths {
		fwdBlockPaths[i] = fwdPathFor(p)
	}
	if err := forward.Remap(fwdBlockPaths, mergeResult.TermToWordID, filepath.Join(outStaging, "forward_index")); err != nil {
		return BuildResult{}, fmt.Errorf("index: remapping forward index: %w", err)
	}

	if err := writeDocIDMap(filepath.Join(outStaging, "docid_map.txt"), docIDs); err != nil {
		return BuildResult{}, fmt.Errorf("index: writing docid_map.txt: %w", err)
	}

	if err := metadata.WriteFile(filepath.Join(outStaging, "doc_meta.txt"), builder.ResolvedMetadata()); err != nil {
		return BuildResult{}, fmt.Errorf("index: writing doc_meta.txt: %w", err)
	}

	if err := buildAutocomplete(outStaging, cfg.AutocompleteTopK, log); err != nil {
		return BuildResult{}, fmt.Errorf("index: building autocomplete index: %w", err)
	}

	if err := os.RemoveAll(cfg.OutDir); err != nil && !os.IsNotExist(err) {
		return BuildResult{}, fmt.Errorf("index: clearing previous output dir: %w", err)
	}
	if err := os.Rename(outStaging, cfg.OutDir); err != nil {
		return BuildResult{}, fmt.Errorf("index: renaming staged output into place: %w", err)
	}

	var malformed int
	if m, ok := reader.(interface{ Malformed() int }); ok {
		malformed = m.Malformed()
	}

	log.Info("index build complete", "docs", docIDs.Len(), "terms", mergeResult.NTerms, "malformed", malformed)
	return BuildResult{
		NDocs:     docIDs.Len(),
		NTerms:    mergeResult.NTerms,
		NBlocks:   len(blockPaths),
		Malformed: malformed,
	}, nil
}

// fwdPathFor derives a block's .fwd sibling path from its .inv path,
// matching spimi/flush.go's naming convention.
func fwdPathFor(invPath string) string {
	ext := filepath.Ext(invPath)
	return invPath[:len(invPath)-len(ext)] + ".fwd"
}

func writeDocIDMap(path string, docIDs *docidmap.Map) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return docIDs.WriteTo(f)
}

func buildAutocomplete(outDir string, topK int, log *slog.Logger) error {
	entries, err := merge.LoadLexicon(filepath.Join(outDir, "lexicon.txt"))
	if err != nil {
		return err
	}
	byPrefix := autocomplete.Build(entries, topK)
	if err := autocomplete.WriteFile(filepath.Join(outDir, "autocomplete.idx"), byPrefix); err != nil {
		return err
	}
	log.Info("autocomplete index built", "prefixes", len(byPrefix))
	return nil
}
