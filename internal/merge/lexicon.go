package merge

import (
	"github.com/corpussearch/engine/internal/lexicon"
)

// LexiconEntry is one row of the global term table. It is a type alias
// for internal/lexicon.Entry: the row shape lives in internal/lexicon
// so that internal/shard (which internal/merge depends on for shard
// assignment) can read lexicon.txt back without importing internal/merge.
type LexiconEntry = lexicon.Entry

// LoadLexicon reads a lexicon.txt previously written by Merge back into
// its row form, for the query service to load wholesale into an
// in-memory map at startup.
func LoadLexicon(path string) ([]LexiconEntry, error) {
	return lexicon.LoadLexicon(path)
}
