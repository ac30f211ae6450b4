// Package leb128 encodes unsigned integers in little-endian base 128.
//
// The encoding is the same as the uvarint format of encoding/binary, which
// does the actual work here.
package leb128

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrOverflow is returned when an encoded value does not fit in 64 bits.
var ErrOverflow = errors.New("leb128: value overflows uint64")

// AppendUint appends the encoding of v to buf.
func AppendUint(buf []byte, v uint64) []byte {
	return binary.AppendUvarint(buf, v)
}

// EncodeUint returns the encoding of v.
func EncodeUint(v uint64) []byte {
	return AppendUint(nil, v)
}

// Size returns the number of bytes needed to encode v.
func Size(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// ReadUint decodes one value from r.
func ReadUint(r io.ByteReader) (uint64, error) {
	v, err := binary.ReadUvarint(r)
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return 0, err
	}
	return 0, ErrOverflow
}

// DecodeUint decodes one value from the front of buf and returns it with
// the number of bytes consumed.
func DecodeUint(buf []byte) (uint64, int, error) {
	v, n := binary.Uvarint(buf)
	switch {
	case n == 0:
		return 0, 0, io.ErrUnexpectedEOF
	case n < 0:
		return 0, -n, ErrOverflow
	}
	return v, n, nil
}
