package bytecode

import (
	"bytes"
	"errors"
	"testing"
)

func decodeAll(t *testing.T, code []byte) []Instruction {
	t.Helper()
	ins, err := Instructions(code)
	if err != nil {
		t.Fatalf("Instructions: %v", err)
	}
	return ins
}

// checkTiling verifies the decoded instructions cover the code array
// exactly, each starting where the previous one ended.
func checkTiling(t *testing.T, code []byte, ins []Instruction) {
	t.Helper()
	off := 0
	for i, in := range ins {
		if in.Offset != off {
			t.Errorf("instruction %d offset = %d, want %d", i, in.Offset, off)
		}
		if in.Length <= 0 {
			t.Errorf("instruction %d length = %d", i, in.Length)
		}
		off += in.Length
	}
	if off != len(code) {
		t.Errorf("instructions cover %d bytes, code is %d", off, len(code))
	}
}

func TestDecodeStraightLine(t *testing.T) {
	code := []byte{
		42,              // aload_0
		16, 0x7F,        // bipush 127
		18, 0x05,        // ldc #5
		184, 0x00, 0x0A, // invokestatic #10
		177,             // return
	}
	ins := decodeAll(t, code)
	checkTiling(t, code, ins)

	wantOps := []Opcode{42, OpBipush, OpLdc, OpInvokestatic, OpReturn}
	if len(ins) != len(wantOps) {
		t.Fatalf("decoded %d instructions, want %d", len(ins), len(wantOps))
	}
	for i, want := range wantOps {
		if ins[i].Opcode != want {
			t.Errorf("instruction %d = %s, want %s", i, ins[i].Opcode.Mnemonic(), want.Mnemonic())
		}
	}
}

func TestCPIndex(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		idx  uint16
		has  bool
	}{
		{"ldc single byte", []byte{18, 0x2A}, 0x2A, true},
		{"ldc_w two bytes", []byte{19, 0x01, 0x02}, 0x0102, true},
		{"invokevirtual", []byte{182, 0x00, 0x07}, 7, true},
		{"invokeinterface", []byte{185, 0x00, 0x07, 0x02, 0x00}, 7, true},
		{"iload no index", []byte{21, 0x03}, 0, false},
		{"return no index", []byte{177}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins := decodeAll(t, tt.code)
			if len(ins) != 1 {
				t.Fatalf("decoded %d instructions", len(ins))
			}
			idx, has := ins[0].CPIndex()
			if has != tt.has || idx != tt.idx {
				t.Errorf("CPIndex = %d, %v; want %d, %v", idx, has, tt.idx, tt.has)
			}
		})
	}
}

func TestDecodeWide(t *testing.T) {
	t.Run("iload", func(t *testing.T) {
		code := []byte{196, 21, 0x01, 0x00, 177} // wide iload 256, return
		ins := decodeAll(t, code)
		checkTiling(t, code, ins)
		if len(ins) != 2 {
			t.Fatalf("decoded %d instructions, want 2", len(ins))
		}
		in := ins[0]
		if in.Opcode != 21 || !in.Wide {
			t.Errorf("got %s wide=%v, want wide iload", in.Opcode.Mnemonic(), in.Wide)
		}
		if in.Length != 4 {
			t.Errorf("length = %d, want 4", in.Length)
		}
		if !bytes.Equal(in.Operands, []byte{0x01, 0x00}) {
			t.Errorf("operands = %v", in.Operands)
		}
	})

	t.Run("iinc", func(t *testing.T) {
		code := []byte{196, 132, 0x01, 0x00, 0xFF, 0x9C} // wide iinc 256, -100
		ins := decodeAll(t, code)
		checkTiling(t, code, ins)
		if ins[0].Opcode != OpIinc || !ins[0].Wide || ins[0].Length != 6 {
			t.Errorf("got %s wide=%v length=%d", ins[0].Opcode.Mnemonic(), ins[0].Wide, ins[0].Length)
		}
	})

	t.Run("bad modified opcode", func(t *testing.T) {
		_, err := Instructions([]byte{196, 0}) // wide nop
		if !errors.Is(err, ErrBadInstruction) {
			t.Errorf("got %v, want ErrBadInstruction", err)
		}
	})
}

// switch operands are aligned to a 4-byte boundary relative to the start of
// the code array, so the same instruction decodes with a different padding
// width depending on its offset. Leading nops shift the switch through all
// four alignments.
func TestDecodeTableswitch(t *testing.T) {
	// tableswitch default=0 low=0 high=1 with two jump offsets.
	body := []byte{
		0, 0, 0, 0, // default
		0, 0, 0, 0, // low
		0, 0, 0, 1, // high
		0, 0, 0, 8, // offset for 0
		0, 0, 0, 9, // offset for 1
	}
	for nops := 0; nops < 4; nops++ {
		code := bytes.Repeat([]byte{0}, nops)
		code = append(code, 170) // tableswitch
		pad := (4 - (nops+1)%4) % 4
		code = append(code, bytes.Repeat([]byte{0}, pad)...)
		code = append(code, body...)
		code = append(code, 177) // return

		ins := decodeAll(t, code)
		checkTiling(t, code, ins)

		sw := ins[nops]
		if sw.Opcode != OpTableswitch {
			t.Fatalf("nops=%d: instruction = %s", nops, sw.Opcode.Mnemonic())
		}
		if sw.Length != 1+pad+len(body) {
			t.Errorf("nops=%d: length = %d, want %d", nops, sw.Length, 1+pad+len(body))
		}
		if last := ins[len(ins)-1]; last.Opcode != OpReturn {
			t.Errorf("nops=%d: trailing instruction = %s", nops, last.Opcode.Mnemonic())
		}
	}
}

func TestDecodeLookupswitch(t *testing.T) {
	body := []byte{
		0, 0, 0, 0, // default
		0, 0, 0, 1, // npairs
		0, 0, 0, 5, // match
		0, 0, 0, 8, // offset
	}
	code := []byte{0, 171} // nop, lookupswitch at offset 1
	pad := (4 - 2%4) % 4
	code = append(code, bytes.Repeat([]byte{0}, pad)...)
	code = append(code, body...)
	code = append(code, 177)

	ins := decodeAll(t, code)
	checkTiling(t, code, ins)
	if ins[1].Opcode != OpLookupswitch {
		t.Fatalf("instruction 1 = %s", ins[1].Opcode.Mnemonic())
	}

	t.Run("negative pair count", func(t *testing.T) {
		bad := []byte{
			171, 0, 0, 0,           // opcode + padding
			0, 0, 0, 0,             // default
			0xFF, 0xFF, 0xFF, 0xFF, // npairs = -1
		}
		if _, err := Instructions(bad); !errors.Is(err, ErrBadInstruction) {
			t.Errorf("got %v, want ErrBadInstruction", err)
		}
	})

	t.Run("inverted table bounds", func(t *testing.T) {
		bad := []byte{
			170, 0, 0, 0, // opcode + padding
			0, 0, 0, 0,   // default
			0, 0, 0, 5,   // low
			0, 0, 0, 1,   // high < low
		}
		if _, err := Instructions(bad); !errors.Is(err, ErrBadInstruction) {
			t.Errorf("got %v, want ErrBadInstruction", err)
		}
	})
}

func TestDecodeErrors(t *testing.T) {
	t.Run("undefined opcode", func(t *testing.T) {
		if _, err := Instructions([]byte{203}); !errors.Is(err, ErrBadInstruction) {
			t.Errorf("got %v, want ErrBadInstruction", err)
		}
	})
	t.Run("truncated operands", func(t *testing.T) {
		if _, err := Instructions([]byte{184, 0x00}); !errors.Is(err, ErrTruncatedCode) {
			t.Errorf("got %v, want ErrTruncatedCode", err)
		}
	})
	t.Run("truncated switch", func(t *testing.T) {
		if _, err := Instructions([]byte{170, 0, 0, 0, 0, 0}); !errors.Is(err, ErrTruncatedCode) {
			t.Errorf("got %v, want ErrTruncatedCode", err)
		}
	})
}

func TestMnemonics(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpNop, "nop"},
		{OpInvokevirtual, "invokevirtual"},
		{OpJsrW, "jsr_w"},
		{Opcode(202), "op_0xca"},
	}
	for _, tt := range tests {
		if got := tt.op.Mnemonic(); got != tt.want {
			t.Errorf("Mnemonic(%d) = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestIsInvoke(t *testing.T) {
	invokes := []Opcode{OpInvokevirtual, OpInvokespecial, OpInvokestatic, OpInvokeinterface}
	for _, op := range invokes {
		if !op.IsInvoke() {
			t.Errorf("%s should be an invoke", op.Mnemonic())
		}
	}
	// invokedynamic call sites have no static method target and are
	// deliberately outside the family.
	for _, op := range []Opcode{OpInvokedynamic, OpGetstatic, OpNew, OpReturn} {
		if op.IsInvoke() {
			t.Errorf("%s should not be an invoke", op.Mnemonic())
		}
	}
}
