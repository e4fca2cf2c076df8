// Package codec implements the posting-list wire format: delta encoding of
// docIDs and positions followed by variable-byte (VByte) integer encoding.
//
// VByte convention: a value is split into 7-bit groups, least-significant
// group first. Every group is written as one byte; the continuation bit
// (0x80) is clear on every group except the last (most significant) one,
// which sets it. Decoding shifts in 7-bit chunks until a byte with the high
// bit set terminates the value. This is the opposite of the common LEB128
// convention (continuation bit means "more bytes follow") — picking one
// convention and using it everywhere is the whole point; mixing the two
// silently corrupts the posting stream.
package codec

// MaxVByteLen is the longest a VByte encoding of a uint32 can be: ceil(32/7).
const MaxVByteLen = 5

// PutUvarint appends the VByte encoding of v to buf and returns the result.
func PutUvarint(buf []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b|0x80)
		}
		buf = append(buf, b)
	}
}

// Uvarint decodes a VByte-encoded uint32 from the front of buf, returning the
// value and the number of bytes consumed. It returns (0, 0) if buf does not
// contain a terminated value within MaxVByteLen bytes.
func Uvarint(buf []byte) (uint32, int) {
	var v uint32
	for i := 0; i < MaxVByteLen && i < len(buf); i++ {
		b := buf[i]
		v |= uint32(b&0x7f) << (7 * uint(i))
		if b&0x80 != 0 {
			return v, i + 1
		}
	}
	return 0, 0
}

// EncodedLen returns the number of bytes PutUvarint would emit for v.
func EncodedLen(v uint32) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}
