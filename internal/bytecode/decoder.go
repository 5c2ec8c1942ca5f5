package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrTruncatedCode  = errors.New("truncated code")
	ErrBadInstruction = errors.New("bad instruction")
)

// Instruction is one decoded bytecode instruction.
type Instruction struct {
	Opcode   Opcode
	Offset   int    // byte offset within the method's code array
	Length   int    // encoded length including the opcode (and wide prefix)
	Operands []byte // raw operand bytes following the opcode
	Wide     bool   // instruction was prefixed by the wide opcode
}

// CPIndex returns the constant-pool index the instruction carries, if any.
func (in *Instruction) CPIndex() (uint16, bool) {
	if !carriesCPIndex[in.Opcode] {
		return 0, false
	}
	// ldc has a single-byte index; every other carrier uses two bytes.
	if in.Opcode == OpLdc {
		return uint16(in.Operands[0]), true
	}
	return binary.BigEndian.Uint16(in.Operands[:2]), true
}

// Decoder walks a method's raw code array and yields one decoded
// instruction per call to Next. A Decoder is forward-only; create a new
// one over the same code to iterate again.
type Decoder struct {
	code []byte
	off  int
}

// NewDecoder creates a Decoder positioned at offset 0 of code.
func NewDecoder(code []byte) *Decoder {
	return &Decoder{code: code}
}

// Next decodes the instruction at the current offset. It returns ok=false
// when the code array is exhausted.
func (d *Decoder) Next() (in Instruction, ok bool, err error) {
	if d.off >= len(d.code) {
		return Instruction{}, false, nil
	}
	start := d.off
	op := Opcode(d.code[d.off])
	d.off++
	if !op.Valid() {
		return Instruction{}, false, fmt.Errorf("%w: opcode 0x%02x at offset %d", ErrBadInstruction, byte(op), start)
	}

	in = Instruction{Opcode: op, Offset: start}
	switch op {
	case OpWide:
		if err := d.decodeWide(&in); err != nil {
			return Instruction{}, false, err
		}
	case OpTableswitch:
		if err := d.decodeTableswitch(&in); err != nil {
			return Instruction{}, false, err
		}
	case OpLookupswitch:
		if err := d.decodeLookupswitch(&in); err != nil {
			return Instruction{}, false, err
		}
	default:
		n := int(operandWidths[op])
		operands, err := d.take(n)
		if err != nil {
			return Instruction{}, false, err
		}
		in.Operands = operands
	}
	in.Length = d.off - start
	return in, true, nil
}

// take consumes n operand bytes.
func (d *Decoder) take(n int) ([]byte, error) {
	if len(d.code)-d.off < n {
		return nil, fmt.Errorf("%w: need %d operand bytes at offset %d, have %d", ErrTruncatedCode, n, d.off, len(d.code)-d.off)
	}
	b := d.code[d.off : d.off+n]
	d.off += n
	return b, nil
}

// decodeWide folds a wide prefix into the modified instruction: the
// local-variable index operand grows from one byte to two, and iinc
// additionally carries a two-byte increment.
func (d *Decoder) decodeWide(in *Instruction) error {
	b, err := d.take(1)
	if err != nil {
		return err
	}
	mod := Opcode(b[0])
	switch mod {
	case OpIinc:
		if in.Operands, err = d.take(4); err != nil {
			return err
		}
	case 21, 22, 23, 24, 25, 54, 55, 56, 57, 58, OpRet: // loads, stores, ret
		if in.Operands, err = d.take(2); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: wide prefix on %s at offset %d", ErrBadInstruction, mod.Mnemonic(), in.Offset)
	}
	in.Opcode = mod
	in.Wide = true
	return nil
}

// switchPadding skips the alignment padding that follows a switch opcode:
// the operands start at the next 4-byte boundary relative to the start of
// the code array.
func (d *Decoder) switchPadding() error {
	pad := (4 - d.off%4) % 4
	_, err := d.take(pad)
	return err
}

func (d *Decoder) decodeTableswitch(in *Instruction) error {
	operandStart := d.off
	if err := d.switchPadding(); err != nil {
		return err
	}
	// default, low, high
	header, err := d.take(12)
	if err != nil {
		return err
	}
	low := int32(binary.BigEndian.Uint32(header[4:8]))
	high := int32(binary.BigEndian.Uint32(header[8:12]))
	if high < low {
		return fmt.Errorf("%w: tableswitch bounds %d..%d at offset %d", ErrBadInstruction, low, high, in.Offset)
	}
	if _, err := d.take((int(high) - int(low) + 1) * 4); err != nil {
		return err
	}
	in.Operands = d.code[operandStart:d.off]
	return nil
}

func (d *Decoder) decodeLookupswitch(in *Instruction) error {
	operandStart := d.off
	if err := d.switchPadding(); err != nil {
		return err
	}
	// default, npairs
	header, err := d.take(8)
	if err != nil {
		return err
	}
	npairs := int32(binary.BigEndian.Uint32(header[4:8]))
	if npairs < 0 {
		return fmt.Errorf("%w: lookupswitch pair count %d at offset %d", ErrBadInstruction, npairs, in.Offset)
	}
	if _, err := d.take(int(npairs) * 8); err != nil {
		return err
	}
	in.Operands = d.code[operandStart:d.off]
	return nil
}

// Instructions decodes the whole code array eagerly.
func Instructions(code []byte) ([]Instruction, error) {
	d := NewDecoder(code)
	var out []Instruction
	for {
		in, ok, err := d.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, in)
	}
}
