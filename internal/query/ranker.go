package query

import (
	"math"
	"regexp"
	"strconv"
)

// RankerConfig holds every ranking constant as an explicit struct:
// BM25 constants, field-boost weights, recency weight, and current year
// are all passed in rather than held as process-wide constants, so tests
// and benchmarks stay deterministic.
type RankerConfig struct {
	K1 float64
	B  float64

	// Field-boost thresholds and multipliers: a position-fraction
	// heuristic approximating field-tagged BM25F without threading
	// field identifiers through the pipeline.
	TitleFrac     float64
	TitleBoost    float64
	AbstractFrac  float64
	AbstractBoost float64
	BodyBoost     float64

	// Recency.
	RecencyDecay  float64 // exponent base rate
	RecencyWeight float64 // W_r
	RecencyScale  float64 // the constant "10" in the final-score formula
	CurrentYear   int

	// Phrase scoring is a flat constant, not BM25 over
	// phrase occurrences.
	PhraseConstant float64
}

// DefaultRankerConfig returns the ranker's default constants.
func DefaultRankerConfig(currentYear int) RankerConfig {
	return RankerConfig{
		K1:             1.2,
		B:              0.75,
		TitleFrac:      0.10,
		TitleBoost:     3.0,
		AbstractFrac:   0.30,
		AbstractBoost:  2.0,
		BodyBoost:      1.0,
		RecencyDecay:   0.1,
		RecencyWeight:  0.10,
		RecencyScale:   10,
		CurrentYear:    currentYear,
		PhraseConstant: 100,
	}
}

// idf implements the BM25 idf term.
func idf(n, df int, cfg RankerConfig) float64 {
	return math.Log((float64(n)-float64(df)+0.5)/(float64(df)+0.5) + 1)
}

// tfComponent implements the BM25 tf normalization.
func tfComponent(tf float64, docLen, avgDocLen float64, cfg RankerConfig) float64 {
	if avgDocLen == 0 {
		return 0
	}
	denom := tf + cfg.K1*(1-cfg.B+cfg.B*(docLen/avgDocLen))
	if denom == 0 {
		return 0
	}
	return tf * (cfg.K1 + 1) / denom
}

// bm25 is one term's contribution for one document.
func bm25(n, df int, tf float64, docLen, avgDocLen float64, cfg RankerConfig) float64 {
	return idf(n, df, cfg) * tfComponent(tf, docLen, avgDocLen, cfg)
}

// fieldBoost classifies a term occurrence by its first position's
// fractional offset within the document.
func fieldBoost(firstPos uint32, docLen uint32, cfg RankerConfig) float64 {
	if docLen == 0 {
		return cfg.BodyBoost
	}
	frac := float64(firstPos) / float64(docLen)
	switch {
	case frac < cfg.TitleFrac:
		return cfg.TitleBoost
	case frac < cfg.AbstractFrac:
		return cfg.AbstractBoost
	default:
		return cfg.BodyBoost
	}
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// recencyScore extracts the first 4-digit year in [1900, 2099] from
// pubDate and applies an exponential age decay. If no year is
// parseable, it returns a neutral 0.5.
func recencyScore(pubDate string, cfg RankerConfig) float64 {
	for _, m := range yearPattern.FindAllString(pubDate, -1) {
		year, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if year < 1900 || year > 2099 {
			continue
		}
		age := cfg.CurrentYear - year
		if age < 0 {
			age = 0
		}
		return math.Exp(-cfg.RecencyDecay * float64(age))
	}
	return 0.5
}

// finalScore blends a document's accumulated BM25 sum with its recency
// score.
func finalScore(bm25Sum, recency float64, cfg RankerConfig) float64 {
	return (1-cfg.RecencyWeight)*bm25Sum + cfg.RecencyWeight*cfg.RecencyScale*recency
}
