package classfile

import (
	"errors"
	"testing"
)

func TestReaderReads(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09})

	v8, err := r.U8()
	if err != nil {
		t.Fatalf("U8: %v", err)
	}
	if v8 != 0x01 {
		t.Errorf("U8 = 0x%02x, want 0x01", v8)
	}

	v16, err := r.U16()
	if err != nil {
		t.Fatalf("U16: %v", err)
	}
	if v16 != 0x0203 {
		t.Errorf("U16 = 0x%04x, want 0x0203", v16)
	}

	v32, err := r.U32()
	if err != nil {
		t.Fatalf("U32: %v", err)
	}
	if v32 != 0x04050607 {
		t.Errorf("U32 = 0x%08x, want 0x04050607", v32)
	}

	if got := r.Offset(); got != 7 {
		t.Errorf("Offset = %d, want 7", got)
	}
	if got := r.Remaining(); got != 2 {
		t.Errorf("Remaining = %d, want 2", got)
	}
}

func TestReaderTruncation(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02})
	if err := r.Skip(1); err != nil {
		t.Fatalf("Skip: %v", err)
	}

	_, err := r.U32()
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("U32 past end = %v, want ErrTruncated", err)
	}

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error %v is not a ParseError", err)
	}
	if pe.Offset != 1 {
		t.Errorf("ParseError.Offset = %d, want 1", pe.Offset)
	}

	// A failed read must not advance the cursor.
	if got := r.Remaining(); got != 1 {
		t.Errorf("Remaining after failed read = %d, want 1", got)
	}
}

func TestSubReader(t *testing.T) {
	r := NewReader([]byte{0xAA, 0x01, 0x02, 0x03, 0xBB})
	if err := r.Skip(1); err != nil {
		t.Fatalf("Skip: %v", err)
	}

	sub, err := r.Sub(3)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}

	// The parent cursor moves past the consumed block.
	if got := r.Offset(); got != 4 {
		t.Errorf("parent Offset = %d, want 4", got)
	}

	// The sub-reader reports offsets relative to the outermost buffer.
	if got := sub.Offset(); got != 1 {
		t.Errorf("sub Offset = %d, want 1", got)
	}

	v, err := sub.U16()
	if err != nil {
		t.Fatalf("sub U16: %v", err)
	}
	if v != 0x0102 {
		t.Errorf("sub U16 = 0x%04x, want 0x0102", v)
	}

	// Reading past the sub-reader's bound fails even though the parent
	// buffer has more bytes.
	if _, err := sub.U16(); !errors.Is(err, ErrTruncated) {
		t.Errorf("read past sub bound = %v, want ErrTruncated", err)
	}
}

func TestSubReaderTooLong(t *testing.T) {
	r := NewReader([]byte{0x01})
	if _, err := r.Sub(5); !errors.Is(err, ErrTruncated) {
		t.Errorf("Sub past end = %v, want ErrTruncated", err)
	}
}
