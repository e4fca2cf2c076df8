package codec

import (
	"math/rand"
	"testing"
)

func TestUvarintRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 2, 63, 64, 127, 128, 16383, 16384, 1 << 20, 1<<32 - 1}
	for _, v := range cases {
		buf := PutUvarint(nil, v)
		if len(buf) > MaxVByteLen {
			t.Fatalf("encode(%d) used %d bytes, want <= %d", v, len(buf), MaxVByteLen)
		}
		if len(buf) != EncodedLen(v) {
			t.Fatalf("encode(%d) used %d bytes, EncodedLen says %d", v, len(buf), EncodedLen(v))
		}
		got, n := Uvarint(buf)
		if n != len(buf) || got != v {
			t.Fatalf("decode(encode(%d)) = (%d, %d), want (%d, %d)", v, got, n, v, len(buf))
		}
	}
}

func TestUvarintRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		v := rng.Uint32()
		buf := PutUvarint(nil, v)
		got, n := Uvarint(buf)
		if n != len(buf) || got != v {
			t.Fatalf("decode(encode(%d)) = (%d, %d), want (%d, %d)", v, got, n, v, len(buf))
		}
	}
}

func TestUvarintTruncated(t *testing.T) {
	buf := PutUvarint(nil, 1<<30)
	_, n := Uvarint(buf[:len(buf)-1])
	if n != 0 {
		t.Fatalf("decode of truncated buffer returned n=%d, want 0", n)
	}
}

func TestDeltaMonotonicity(t *testing.T) {
	small := PutUvarint(nil, 5)
	large := PutUvarint(nil, 5000000)
	if len(small) > len(large) {
		t.Fatalf("smaller gap encoded larger: %d > %d", len(small), len(large))
	}
}
