// Package index implements the programmatic surface over the built
// artifacts: Open loads a completed build and returns a Handle; Handle
// answers Search, Autocomplete, and Stats against read-only,
// shared-after-load structures.
package index

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/corpussearch/engine/internal/autocomplete"
	"github.com/corpussearch/engine/internal/docidmap"
	"github.com/corpussearch/engine/internal/metadata"
	"github.com/corpussearch/engine/internal/query"
	"github.com/corpussearch/engine/internal/shard"
	apperrors "github.com/corpussearch/engine/pkg/errors"
	applog "github.com/corpussearch/engine/pkg/logger"
)

// OpenOptions controls how Index.Open wires the posting reader and
// ranking constants for the returned Handle.
type OpenOptions struct {
	// ShardResidency selects the shard.Loader variant: "resident" (the
	// default, suited to small corpora) or "lru".
	ShardResidency string
	LRUMaxResident int
	Ranker         query.RankerConfig
	// QueryCache is optional; nil disables result caching.
	QueryCache *query.Cache
}

func (o OpenOptions) withDefaults() OpenOptions {
	if o.ShardResidency == "" {
		o.ShardResidency = "resident"
	}
	if o.LRUMaxResident <= 0 {
		o.LRUMaxResident = 2
	}
	if (o.Ranker == query.RankerConfig{}) {
		o.Ranker = query.DefaultRankerConfig(time.Now().Year())
	}
	return o
}

// Handle is an opened, queryable index. It holds only read-only,
// shared structures once constructed and is safe for concurrent use by
// many callers.
type Handle struct {
	executor     *query.Executor
	autocomplete *autocomplete.Index
	cache        *query.Cache

	nDocs     int
	nTerms    int
	avgDocLen float64
	nShards   int
}

// Open loads a completed build directory (lexicon, docID map, forward
// index, metadata, posting shards, and the autocomplete index) and
// returns a ready-to-query Handle.
func Open(dir string, nShards int, opts OpenOptions) (*Handle, error) {
	opts = opts.withDefaults()
	log := applog.WithComponent("index.handle")

	docIDs, err := docidmap.LoadFile(filepath.Join(dir, "docid_map.txt"))
	if err != nil {
		return nil, fmt.Errorf("%w: loading docid_map.txt: %v", apperrors.ErrCorruptIndex, err)
	}

	lexicon, err := shard.LoadLexiconMap(filepath.Join(dir, "lexicon.txt"))
	if err != nil {
		return nil, fmt.Errorf("%w: loading lexicon.txt: %v", apperrors.ErrCorruptIndex, err)
	}

	docMeta, err := metadata.LoadFile(filepath.Join(dir, "doc_meta.txt"))
	if err != nil {
		return nil, fmt.Errorf("%w: loading doc_meta.txt: %v", apperrors.ErrCorruptIndex, err)
	}

	docLens, err := loadDocLengths(filepath.Join(dir, "forward_index"))
	if err != nil {
		return nil, fmt.Errorf("%w: loading forward_index: %v", apperrors.ErrCorruptIndex, err)
	}

	var loader shard.Loader
	switch opts.ShardResidency {
	case "lru":
		loader = shard.NewLRUReader(dir, opts.LRUMaxResident)
	case "resident":
		r, err := shard.NewResidentReader(dir, nShards)
		if err != nil {
			return nil, err
		}
		loader = r
	default:
		return nil, fmt.Errorf("%w: unknown shard residency %q", apperrors.ErrConfig, opts.ShardResidency)
	}
	reader := shard.NewReader(loader, lexicon)

	provider := newDocInfoProvider(docIDs, docLens, docMeta)

	var avgDocLen float64
	if len(docLens) > 0 {
		var total uint64
		for _, l := range docLens {
			total += uint64(l)
		}
		avgDocLen = float64(total) / float64(len(docLens))
	}

	executor := query.New(reader, provider, opts.Ranker, docIDs.Len(), avgDocLen)

	acIdx, err := autocomplete.Load(filepath.Join(dir, "autocomplete.idx"))
	if err != nil {
		return nil, fmt.Errorf("%w: loading autocomplete.idx: %v", apperrors.ErrCorruptIndex, err)
	}

	log.Info("index opened", "dir", dir, "docs", docIDs.Len(), "terms", len(lexicon), "shards", nShards)
	return &Handle{
		executor:     executor,
		autocomplete: acIdx,
		cache:        opts.QueryCache,
		nDocs:        docIDs.Len(),
		nTerms:       len(lexicon),
		avgDocLen:    avgDocLen,
		nShards:      nShards,
	}, nil
}

// Search answers a query.Plan, transparently routed through the query
// cache when one is configured.
func (h *Handle) Search(plan query.Plan) (query.Response, error) {
	if h.cache == nil {
		return h.executor.Search(plan)
	}
	resp, _, err := h.cache.GetOrCompute(context.Background(), plan, func() (query.Response, error) {
		return h.executor.Search(plan)
	})
	return resp, err
}

// AutocompleteHit is one ranked completion suggestion.
type AutocompleteHit struct {
	Term       string
	DocFreq    uint32
	Popularity float64
}

// Autocomplete returns up to limit ranked completions for prefix.
func (h *Handle) Autocomplete(prefix string, limit int) []AutocompleteHit {
	entries := h.autocomplete.Suggest(prefix, limit)
	hits := make([]AutocompleteHit, len(entries))
	for i, e := range entries {
		hits[i] = AutocompleteHit{Term: e.Term, DocFreq: e.DocFreq, Popularity: e.Popularity}
	}
	return hits
}

// Stats summarizes the opened index.
type Stats struct {
	NDocs     int
	NTerms    int
	AvgDocLen float64
	NShards   int
}

func (h *Handle) Stats() Stats {
	return Stats{NDocs: h.nDocs, NTerms: h.nTerms, AvgDocLen: h.avgDocLen, NShards: h.nShards}
}
