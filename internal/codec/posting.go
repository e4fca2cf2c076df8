package codec

// Posting asserts that a term occurs TF times in document DocID at the
// given strictly increasing token offsets.
type Posting struct {
	DocID     uint32
	TF        uint32
	Positions []uint32
}

// PostingList is a term's postings, sorted strictly by DocID.
type PostingList []Posting

// Encode serializes pl into the wire format described in the package doc:
// a doc-count prefix followed by, per posting, a delta-encoded docID, a raw
// term frequency, and tf delta-encoded positions.
func Encode(pl PostingList) []byte {
	buf := make([]byte, 0, len(pl)*4)
	buf = PutUvarint(buf, uint32(len(pl)))
	var prevDoc uint32
	for _, p := range pl {
		buf = PutUvarint(buf, p.DocID-prevDoc)
		prevDoc = p.DocID
		buf = PutUvarint(buf, p.TF)
		var prevPos uint32
		for _, pos := range p.Positions {
			buf = PutUvarint(buf, pos-prevPos)
			prevPos = pos
		}
	}
	return buf
}

// Decode parses a byte range produced by Encode. It returns ErrCorruptPosting
// if the declared doc count exceeds MaxDocCount, if any VByte value fails to
// terminate within MaxVByteLen bytes, or if a field would read past the end
// of buf.
func Decode(buf []byte) (PostingList, error) {
	docCount, n := Uvarint(buf)
	if n == 0 {
		return nil, ErrCorruptPosting
	}
	if docCount > MaxDocCount {
		return nil, ErrCorruptPosting
	}
	buf = buf[n:]

	pl := make(PostingList, docCount)
	var docID uint32
	for i := uint32(0); i < docCount; i++ {
		delta, n := Uvarint(buf)
		if n == 0 {
			return nil, ErrCorruptPosting
		}
		buf = buf[n:]
		docID += delta

		tf, n := Uvarint(buf)
		if n == 0 {
			return nil, ErrCorruptPosting
		}
		buf = buf[n:]

		positions := make([]uint32, tf)
		var pos uint32
		for j := uint32(0); j < tf; j++ {
			delta, n := Uvarint(buf)
			if n == 0 {
				return nil, ErrCorruptPosting
			}
			buf = buf[n:]
			pos += delta
			positions[j] = pos
		}

		pl[i] = Posting{DocID: docID, TF: tf, Positions: positions}
	}
	return pl, nil
}
