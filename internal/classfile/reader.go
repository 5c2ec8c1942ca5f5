package classfile

import "encoding/binary"

// Reader is a sequential, forward-only cursor over an immutable byte
// buffer. All multi-byte reads are big-endian, matching the class file
// format. A read past the end of the buffer fails with ErrTruncated.
type Reader struct {
	data []byte
	off  int
	base int // offset of data[0] within the outermost buffer
}

// NewReader creates a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the cursor position relative to the outermost buffer,
// so errors from sub-readers still report absolute offsets.
func (r *Reader) Offset() int { return r.base + r.off }

// Remaining reports how many unread bytes are left.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

// Bytes reads the next n bytes and advances the cursor.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || len(r.data)-r.off < n {
		return nil, &ParseError{Offset: r.Offset(), Err: ErrTruncated}
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Skip advances the cursor past n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.Bytes(n)
	return err
}

// Sub consumes the next n bytes and returns a bounded reader over them.
// Length-prefixed blocks are read through a sub-reader rather than by
// rewinding the parent cursor.
func (r *Reader) Sub(n int) (*Reader, error) {
	b, err := r.Bytes(n)
	if err != nil {
		return nil, err
	}
	return &Reader{data: b, base: r.base + r.off - n}, nil
}

// U8 reads one unsigned byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads a big-endian unsigned 16-bit integer.
func (r *Reader) U16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// U32 reads a big-endian unsigned 32-bit integer.
func (r *Reader) U32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// U64 reads a big-endian unsigned 64-bit integer.
func (r *Reader) U64() (uint64, error) {
	b, err := r.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}
