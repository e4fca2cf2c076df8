package codec

import "errors"

// ErrCorruptPosting is returned when a byte range handed to the decoder is
// not a well-formed VByte posting-list stream: a value overruns the maximum
// VByte width, a field decode would read past the declared range, or the
// declared doc count exceeds a configured sanity bound.
var ErrCorruptPosting = errors.New("corrupt posting list")

// MaxDocCount bounds the doc_count prefix of a posting list. A corrupt or
// truncated byte range can otherwise decode to an implausibly large count
// and drive an unbounded allocation.
const MaxDocCount = 64 << 20
