// Package token defines the fixed-layout token record handed to renderers and
// the kind classifier that labels each record.
//
// A Token is 12 bytes: start and end byte offsets (uint32), a kind code
// (uint16) and two bytes of padding. The same layout is declared on the C side
// as ts_token, so a []Token can be copied byte-for-byte into C memory.
package token

import (
	"encoding/binary"

	"gitlab.com/tozd/go/errors"
)

// RecordSize is the encoded size of one Token in bytes.
const RecordSize = 12

// ErrCorruptBuffer is returned by Decode when the input is not a whole number of records.
var ErrCorruptBuffer = errors.Base("token buffer length is not a multiple of the record size")

// Token is one classified span of source bytes. Start is inclusive, End exclusive.
type Token struct {
	Start uint32
	End   uint32
	Kind  uint16
	Pad   uint16 // always zero; keeps the record 4-byte aligned
}

// Len returns the span length in bytes.
func (t Token) Len() uint32 {
	return t.End - t.Start
}

// Text returns the bytes of src covered by the token.
// Out-of-range spans yield an empty slice.
func (t Token) Text(src []byte) []byte {
	if int(t.End) > len(src) || t.Start > t.End {
		return nil
	}
	return src[t.Start:t.End]
}

// Span builds a Token from a node's reported byte range.
// Both ends are clamped to srcLen, then swapped if end precedes start, so the
// result always satisfies 0 <= Start <= End <= srcLen.
func Span(start, end, srcLen uint, kind uint16) Token {
	if start > srcLen {
		start = srcLen
	}
	if end > srcLen {
		end = srcLen
	}
	if end < start {
		start, end = end, start
	}
	return Token{Start: uint32(start), End: uint32(end), Kind: kind}
}

// Encode serializes tokens as consecutive little-endian records in the ts_token layout.
func Encode(tokens []Token) []byte {
	buf := make([]byte, 0, len(tokens)*RecordSize)
	for _, t := range tokens {
		buf = binary.LittleEndian.AppendUint32(buf, t.Start)
		buf = binary.LittleEndian.AppendUint32(buf, t.End)
		buf = binary.LittleEndian.AppendUint16(buf, t.Kind)
		buf = binary.LittleEndian.AppendUint16(buf, 0)
	}
	return buf
}

// Decode parses records written by Encode. The padding field is ignored.
func Decode(data []byte) ([]Token, error) {
	if len(data)%RecordSize != 0 {
		return nil, errors.Errorf("%w: %d bytes", ErrCorruptBuffer, len(data))
	}
	tokens := make([]Token, len(data)/RecordSize)
	for i := range tokens {
		rec := data[i*RecordSize : (i+1)*RecordSize]
		tokens[i] = Token{
			Start: binary.LittleEndian.Uint32(rec[0:4]),
			End:   binary.LittleEndian.Uint32(rec[4:8]),
			Kind:  binary.LittleEndian.Uint16(rec[8:10]),
		}
	}
	return tokens, nil
}
