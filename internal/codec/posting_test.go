package codec

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	pl := PostingList{
		{DocID: 1, TF: 3, Positions: []uint32{0, 5, 12}},
		{DocID: 4, TF: 1, Positions: []uint32{2}},
		{DocID: 100, TF: 2, Positions: []uint32{0, 1}},
	}

	buf := Encode(pl)
	got, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(pl) {
		t.Fatalf("decoded %d postings, want %d", len(got), len(pl))
	}
	for i := range pl {
		if got[i].DocID != pl[i].DocID {
			t.Fatalf("posting %d: DocID = %d, want %d", i, got[i].DocID, pl[i].DocID)
		}
		if got[i].TF != pl[i].TF {
			t.Fatalf("posting %d: TF = %d, want %d", i, got[i].TF, pl[i].TF)
		}
		if len(got[i].Positions) != len(pl[i].Positions) {
			t.Fatalf("posting %d: got %d positions, want %d", i, len(got[i].Positions), len(pl[i].Positions))
		}
		for j := range pl[i].Positions {
			if got[i].Positions[j] != pl[i].Positions[j] {
				t.Fatalf("posting %d position %d: got %d, want %d", i, j, got[i].Positions[j], pl[i].Positions[j])
			}
		}
	}
}

func TestEncodeEmptyPostingList(t *testing.T) {
	buf := Encode(nil)
	got, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("decoded %d postings from an empty list, want 0", len(got))
	}
}

func TestDecodeRejectsTruncatedBuffer(t *testing.T) {
	pl := PostingList{{DocID: 1, TF: 2, Positions: []uint32{0, 3}}}
	buf := Encode(pl)
	_, err := Decode(buf[:len(buf)-1])
	if err != ErrCorruptPosting {
		t.Fatalf("Decode(truncated) = %v, want ErrCorruptPosting", err)
	}
}

func TestDecodeRejectsImplausibleDocCount(t *testing.T) {
	buf := PutUvarint(nil, MaxDocCount+1)
	_, err := Decode(buf)
	if err != ErrCorruptPosting {
		t.Fatalf("Decode(oversized doc count) = %v, want ErrCorruptPosting", err)
	}
}

func TestEncodeDecodeSingleDocManyPositions(t *testing.T) {
	positions := make([]uint32, 0, 50)
	for i := uint32(0); i < 50; i++ {
		positions = append(positions, i*3)
	}
	pl := PostingList{{DocID: 7, TF: uint32(len(positions)), Positions: positions}}

	got, err := Decode(Encode(pl))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || len(got[0].Positions) != len(positions) {
		t.Fatalf("round trip lost positions: got %+v", got)
	}
	for i, p := range positions {
		if got[0].Positions[i] != p {
			t.Fatalf("position %d: got %d, want %d", i, got[0].Positions[i], p)
		}
	}
}
