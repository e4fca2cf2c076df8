package query

import (
	"container/heap"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/corpussearch/engine/internal/codec"
	"github.com/corpussearch/engine/internal/shard"
	applog "github.com/corpussearch/engine/pkg/logger"
)

// DocInfo is the per-document data the ranker needs beyond the posting
// lists themselves.
type DocInfo struct {
	DocLen  uint32
	PubDate string
}

// DocInfoProvider resolves DocInfo and the external doc_key for an
// internal doc_id. The query executor is built once against a
// read-only, already-loaded index and this interface is the
// seam that keeps it decoupled from how that data is stored.
type DocInfoProvider interface {
	DocInfo(docID uint32) (DocInfo, bool)
	DocKey(docID uint32) (string, bool)
}

// Hit is one ranked result.
type Hit struct {
	DocKey    string
	Score     float64
	BM25      float64
	Recency   float64
	PerTermTF map[string]uint32
}

// Response is the outcome of one Search call.
type Response struct {
	Hits      []Hit
	TimeMs    int64
	Truncated bool
	Deadline  bool
}

// Executor answers Plans against a posting reader and a totals snapshot
// computed once when the index was loaded.
type Executor struct {
	reader    *shard.Reader
	docInfo   DocInfoProvider
	cfg       RankerConfig
	totalDocs int
	avgDocLen float64
	log       *slog.Logger
}

// New builds an Executor. totalDocs and avgDocLen are computed once at
// index-open time.
func New(reader *shard.Reader, docInfo DocInfoProvider, cfg RankerConfig, totalDocs int, avgDocLen float64) *Executor {
	return &Executor{
		reader:    reader,
		docInfo:   docInfo,
		cfg:       cfg,
		totalDocs: totalDocs,
		avgDocLen: avgDocLen,
		log:       applog.WithComponent("query.executor"),
	}
}

type accum struct {
	docID     uint32
	bm25Sum   float64
	perTermTF map[string]uint32
	isPhrase  bool
}

// Search dispatches on plan.Mode via a tagged-variant switch, rather
// than runtime class polymorphism, and returns a fully ordered, bounded
// top-K Response.
func (e *Executor) Search(plan Plan) (Response, error) {
	start := time.Now()
	var resp Response
	var err error

	switch plan.Mode {
	case ModeOR:
		resp, err = e.searchOR(plan)
	case ModeAND:
		resp, err = e.searchAND(plan)
	case ModePhrase:
		resp, err = e.searchPhrase(plan)
	default:
		return Response{}, fmt.Errorf("query: unknown mode %v", plan.Mode)
	}
	if err != nil {
		return Response{}, err
	}
	resp.TimeMs = time.Since(start).Milliseconds()
	return resp, nil
}

func (e *Executor) pastDeadline(plan Plan) bool {
	return plan.hasDeadline() && time.Now().After(plan.Deadline)
}

// decodeTerms decodes every term's posting list. Without requireAll,
// unknown terms are dropped with a warning rather than failing. With
// requireAll (AND, PHRASE), decoding stops at the first unknown term and
// the third result reports it, so the caller can short-circuit to an
// empty result. The second result reports that the deadline passed
// before every term was decoded.
func (e *Executor) decodeTerms(plan Plan, requireAll bool) (map[string]codec.PostingList, bool, bool) {
	postings := make(map[string]codec.PostingList, len(plan.Terms))
	for _, term := range plan.Terms {
		if e.pastDeadline(plan) {
			return postings, true, false
		}
		pl, err := e.reader.Decode(term)
		if err != nil {
			e.log.Warn("term not found, dropping from query", "term", term, "error", err)
			if requireAll {
				return nil, false, true
			}
			continue
		}
		postings[term] = pl
	}
	return postings, false, false
}

func (e *Executor) searchOR(plan Plan) (Response, error) {
	postings, deadlineHit, _ := e.decodeTerms(plan, false)
	if len(postings) == 0 {
		return Response{Hits: []Hit{}, Deadline: deadlineHit}, nil
	}

	accums := make(map[uint32]*accum)
	for term, pl := range postings {
		if e.pastDeadline(plan) {
			deadlineHit = true
			break
		}
		df := len(pl)
		for _, p := range pl {
			info, ok := e.docInfo.DocInfo(p.DocID)
			if !ok {
				continue
			}
			boost := fieldBoost(firstPosition(p), info.DocLen, e.cfg)
			contribution := bm25(e.totalDocs, df, float64(p.TF), float64(info.DocLen), e.avgDocLen, e.cfg) * boost

			a, ok := accums[p.DocID]
			if !ok {
				a = &accum{docID: p.DocID, perTermTF: make(map[string]uint32)}
				accums[p.DocID] = a
			}
			a.bm25Sum += contribution
			a.perTermTF[term] = p.TF
		}
	}
	return e.rank(accums, plan, deadlineHit), nil
}

func (e *Executor) searchAND(plan Plan) (Response, error) {
	postings, deadlineHit, droppedAll := e.decodeTerms(plan, true)
	if droppedAll || len(postings) == 0 {
		return Response{Hits: []Hit{}}, nil
	}

	terms := orderByAscendingDocFreq(postings)
	candidate := postings[terms[0]]
	for _, term := range terms[1:] {
		if e.pastDeadline(plan) {
			deadlineHit = true
			break
		}
		candidate = intersect(candidate, postings[term])
		if len(candidate) == 0 {
			break
		}
	}

	accums := make(map[uint32]*accum)
	for _, p := range candidate {
		info, ok := e.docInfo.DocInfo(p.DocID)
		if !ok {
			continue
		}
		a := &accum{docID: p.DocID, perTermTF: make(map[string]uint32)}
		for term, pl := range postings {
			tp, found := findPosting(pl, p.DocID)
			if !found {
				continue
			}
			df := len(pl)
			boost := fieldBoost(firstPosition(tp), info.DocLen, e.cfg)
			a.bm25Sum += bm25(e.totalDocs, df, float64(tp.TF), float64(info.DocLen), e.avgDocLen, e.cfg) * boost
			a.perTermTF[term] = tp.TF
		}
		accums[p.DocID] = a
	}
	return e.rank(accums, plan, deadlineHit), nil
}

func (e *Executor) searchPhrase(plan Plan) (Response, error) {
	postings, deadlineHit, droppedAll := e.decodeTerms(plan, true)
	if droppedAll || len(postings) == 0 || len(plan.Terms) == 0 {
		return Response{Hits: []Hit{}}, nil
	}

	terms := orderByAscendingDocFreq(postings)
	candidate := postings[terms[0]]
	for _, term := range terms[1:] {
		candidate = intersect(candidate, postings[term])
	}

	accums := make(map[uint32]*accum)
	for _, p := range candidate {
		if e.pastDeadline(plan) {
			deadlineHit = true
			break
		}
		first, ok := e.matchPhrase(plan.Terms, postings, p.DocID)
		if !ok {
			continue
		}
		info, ok := e.docInfo.DocInfo(p.DocID)
		if !ok {
			continue
		}
		boost := fieldBoost(first, info.DocLen, e.cfg)
		a := &accum{docID: p.DocID, perTermTF: make(map[string]uint32), isPhrase: true}
		a.bm25Sum = e.cfg.PhraseConstant * boost
		for _, term := range plan.Terms {
			if tp, found := findPosting(postings[term], p.DocID); found {
				a.perTermTF[term] = tp.TF
			}
		}
		accums[p.DocID] = a
	}
	return e.rank(accums, plan, deadlineHit), nil
}

// matchPhrase looks, for each candidate start position drawn from the
// first term's position list in this document, whether term i occurs at
// start+i for every i. It stops at the
// first match.
func (e *Executor) matchPhrase(terms []string, postings map[string]codec.PostingList, docID uint32) (uint32, bool) {
	firstPosting, ok := findPosting(postings[terms[0]], docID)
	if !ok {
		return 0, false
	}
	for _, start := range firstPosting.Positions {
		matched := true
		for i := 1; i < len(terms); i++ {
			tp, ok := findPosting(postings[terms[i]], docID)
			if !ok {
				matched = false
				break
			}
			if !hasPosition(tp.Positions, start+uint32(i)) {
				matched = false
				break
			}
		}
		if matched {
			return start, true
		}
	}
	return 0, false
}

// rank computes recency, blends the final score, and applies the
// bounded top-K min-heap selection.
func (e *Executor) rank(accums map[uint32]*accum, plan Plan, deadlineHit bool) Response {
	topK := plan.TopK
	if topK <= 0 {
		topK = 10
	}

	h := &hitHeap{}
	for _, a := range accums {
		info, ok := e.docInfo.DocInfo(a.docID)
		var recency float64
		if ok {
			recency = recencyScore(info.PubDate, e.cfg)
		}
		final := finalScore(a.bm25Sum, recency, e.cfg)
		docKey, _ := e.docInfo.DocKey(a.docID)
		heap.Push(h, scoredHit{
			docID: a.docID,
			hit: Hit{
				DocKey:    docKey,
				Score:     final,
				BM25:      a.bm25Sum,
				Recency:   recency,
				PerTermTF: a.perTermTF,
			},
		})
		if h.Len() > topK {
			heap.Pop(h)
		}
	}

	truncated := len(accums) > topK
	hits := make([]Hit, h.Len())
	for i := len(hits) - 1; i >= 0; i-- {
		hits[i] = heap.Pop(h).(scoredHit).hit
	}
	return Response{Hits: hits, Truncated: truncated, Deadline: deadlineHit}
}

// scoredHit and hitHeap implement a bounded min-heap over final score,
// ties broken by ascending doc_id.
type scoredHit struct {
	docID uint32
	hit   Hit
}

type hitHeap []scoredHit

func (h hitHeap) Len() int { return len(h) }
func (h hitHeap) Less(i, j int) bool {
	if h[i].hit.Score != h[j].hit.Score {
		return h[i].hit.Score < h[j].hit.Score
	}
	return h[i].docID > h[j].docID
}
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x interface{}) { *h = append(*h, x.(scoredHit)) }
func (h *hitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func firstPosition(p codec.Posting) uint32 {
	if len(p.Positions) == 0 {
		return 0
	}
	return p.Positions[0]
}

func findPosting(pl codec.PostingList, docID uint32) (codec.Posting, bool) {
	i := sort.Search(len(pl), func(i int) bool { return pl[i].DocID >= docID })
	if i < len(pl) && pl[i].DocID == docID {
		return pl[i], true
	}
	return codec.Posting{}, false
}

func hasPosition(positions []uint32, target uint32) bool {
	i := sort.Search(len(positions), func(i int) bool { return positions[i] >= target })
	return i < len(positions) && positions[i] == target
}

// intersect merges two docID-sorted posting lists via the standard
// advancing two-pointer approach, avoiding a hash set so memory stays
// bounded for large lists.
func intersect(a, b codec.PostingList) codec.PostingList {
	out := make(codec.PostingList, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].DocID == b[j].DocID:
			out = append(out, a[i])
			i++
			j++
		case a[i].DocID < b[j].DocID:
			i++
		default:
			j++
		}
	}
	return out
}

// orderByAscendingDocFreq returns plan terms sorted by ascending
// doc_freq so AND/PHRASE intersect rare terms first.
func orderByAscendingDocFreq(postings map[string]codec.PostingList) []string {
	terms := make([]string, 0, len(postings))
	for term := range postings {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		return len(postings[terms[i]]) < len(postings[terms[j]])
	})
	return terms
}
