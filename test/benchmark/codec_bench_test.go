package benchmark

import (
	"testing"

	"github.com/corpussearch/engine/internal/codec"
)

func buildPostingList(n int) codec.PostingList {
	pl := make(codec.PostingList, n)
	for i := 0; i < n; i++ {
		pl[i] = codec.Posting{
			DocID:     uint32(i*3 + 1),
			TF:        3,
			Positions: []uint32{1, 5, 12},
		}
	}
	return pl
}

// BenchmarkCodecEncode measures posting-list serialization throughput
// over a 10,000-document list.
func BenchmarkCodecEncode(b *testing.B) {
	pl := buildPostingList(10000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf := codec.Encode(pl)
		_ = buf
	}
}

// BenchmarkCodecDecode measures posting-list deserialization throughput
// over a 10,000-document list.
func BenchmarkCodecDecode(b *testing.B) {
	buf := codec.Encode(buildPostingList(10000))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pl, err := codec.Decode(buf)
		if err != nil {
			b.Fatal(err)
		}
		_ = pl
	}
}
