package object

import (
	"fmt"
	"io"

	"github.com/daedalus-js/daedalus/internal/leb128"
)

const maxStringLen = 1 << 30

// WriteString writes s framed as an unsigned LEB128 length that counts a
// trailing NUL, followed by the UTF-8 bytes and the NUL itself.
func WriteString(w io.Writer, s string) error {
	buf := leb128.AppendUint(nil, uint64(len(s)+1))
	buf = append(buf, s...)
	buf = append(buf, 0)
	_, err := w.Write(buf)
	return err
}

// ReadString reads a string written by WriteString.
func ReadString(r io.Reader) (string, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = &byteReader{r: r}
	}
	n, err := leb128.ReadUint(br)
	if err != nil {
		return "", fmt.Errorf("reading string length: %w", err)
	}
	if n == 0 || n > maxStringLen {
		return "", fmt.Errorf("invalid string length %d", n)
	}
	buf := make([]byte, n)
	for i := range buf {
		b, err := br.ReadByte()
		if err != nil {
			return "", fmt.Errorf("reading string body: %w", err)
		}
		buf[i] = b
	}
	if buf[n-1] != 0 {
		return "", fmt.Errorf("string is not NUL terminated")
	}
	return string(buf[:n-1]), nil
}

// byteReader reads one byte at a time so nothing past the string is
// consumed from the underlying reader.
type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func (b *byteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(b.r, b.buf[:]); err != nil {
		return 0, err
	}
	return b.buf[0], nil
}
