package bytecode

import "fmt"

// Opcode is one JVM instruction opcode byte.
type Opcode byte

// Opcodes referenced by name elsewhere in the codebase. The full mnemonic
// table below covers the rest.
const (
	OpNop             Opcode = 0
	OpBipush          Opcode = 16
	OpSipush          Opcode = 17
	OpLdc             Opcode = 18
	OpLdcW            Opcode = 19
	OpLdc2W           Opcode = 20
	OpIinc            Opcode = 132
	OpTableswitch     Opcode = 170
	OpLookupswitch    Opcode = 171
	OpGetstatic       Opcode = 178
	OpPutstatic       Opcode = 179
	OpGetfield        Opcode = 180
	OpPutfield        Opcode = 181
	OpInvokevirtual   Opcode = 182
	OpInvokespecial   Opcode = 183
	OpInvokestatic    Opcode = 184
	OpInvokeinterface Opcode = 185
	OpInvokedynamic   Opcode = 186
	OpNew             Opcode = 187
	OpNewarray        Opcode = 188
	OpAnewarray       Opcode = 189
	OpCheckcast       Opcode = 192
	OpInstanceof      Opcode = 193
	OpWide            Opcode = 196
	OpMultianewarray  Opcode = 197
	OpGotoW           Opcode = 200
	OpJsrW            Opcode = 201
	OpRet             Opcode = 169
	OpReturn          Opcode = 177
)

// mnemonics maps opcode values 0..201 to their names.
var mnemonics = []string{
	"nop", "aconst_null", "iconst_m1", "iconst_0", "iconst_1", "iconst_2",
	"iconst_3", "iconst_4", "iconst_5", "lconst_0", "lconst_1", "fconst_0",
	"fconst_1", "fconst_2", "dconst_0", "dconst_1", "bipush", "sipush", "ldc",
	"ldc_w", "ldc2_w", "iload", "lload", "fload", "dload", "aload", "iload_0",
	"iload_1", "iload_2", "iload_3", "lload_0", "lload_1", "lload_2", "lload_3",
	"fload_0", "fload_1", "fload_2", "fload_3", "dload_0", "dload_1", "dload_2",
	"dload_3", "aload_0", "aload_1", "aload_2", "aload_3", "iaload", "laload",
	"faload", "daload", "aaload", "baload", "caload", "saload", "istore",
	"lstore", "fstore", "dstore", "astore", "istore_0", "istore_1", "istore_2",
	"istore_3", "lstore_0", "lstore_1", "lstore_2", "lstore_3", "fstore_0",
	"fstore_1", "fstore_2", "fstore_3", "dstore_0", "dstore_1", "dstore_2",
	"dstore_3", "astore_0", "astore_1", "astore_2", "astore_3", "iastore",
	"lastore", "fastore", "dastore", "aastore", "bastore", "castore", "sastore",
	"pop", "pop2", "dup", "dup_x1", "dup_x2", "dup2", "dup2_x1", "dup2_x2",
	"swap", "iadd", "ladd", "fadd", "dadd", "isub", "lsub", "fsub", "dsub",
	"imul", "lmul", "fmul", "dmul", "idiv", "ldiv", "fdiv", "ddiv", "irem",
	"lrem", "frem", "drem", "ineg", "lneg", "fneg", "dneg", "ishl", "lshl",
	"ishr", "lshr", "iushr", "lushr", "iand", "land", "ior", "lor", "ixor",
	"lxor", "iinc", "i2l", "i2f", "i2d", "l2i", "l2f", "l2d", "f2i", "f2l",
	"f2d", "d2i", "d2l", "d2f", "i2b", "i2c", "i2s", "lcmp", "fcmpl", "fcmpg",
	"dcmpl", "dcmpg", "ifeq", "ifne", "iflt", "ifge", "ifgt", "ifle",
	"if_icmpeq", "if_icmpne", "if_icmplt", "if_icmpge", "if_icmpgt",
	"if_icmple", "if_acmpeq", "if_acmpne", "goto", "jsr", "ret", "tableswitch",
	"lookupswitch", "ireturn", "lreturn", "freturn", "dreturn", "areturn",
	"return", "getstatic", "putstatic", "getfield", "putfield", "invokevirtual",
	"invokespecial", "invokestatic", "invokeinterface", "invokedynamic", "new",
	"newarray", "anewarray", "arraylength", "athrow", "checkcast", "instanceof",
	"monitorenter", "monitorexit", "wide", "multianewarray", "ifnull",
	"ifnonnull", "goto_w", "jsr_w",
}

// Mnemonic returns the opcode's assembly name, or a hex rendering for
// values outside the defined range.
func (op Opcode) Mnemonic() string {
	if int(op) < len(mnemonics) {
		return mnemonics[op]
	}
	return fmt.Sprintf("op_0x%02x", byte(op))
}

// Valid reports whether the opcode value is a defined instruction.
func (op Opcode) Valid() bool { return int(op) < len(mnemonics) }

// IsInvoke reports whether the opcode is one of the four invocation
// instructions the call graph follows: invokevirtual, invokespecial,
// invokestatic, invokeinterface.
func (op Opcode) IsInvoke() bool {
	return op >= OpInvokevirtual && op <= OpInvokeinterface
}

// variableLength marks the three opcodes whose operand count depends on
// the stream itself.
const variableLength = -1

// operandWidths holds the fixed operand byte count per opcode.
var operandWidths [202]int8

func init() {
	set := func(n int8, ops ...Opcode) {
		for _, op := range ops {
			operandWidths[op] = n
		}
	}
	// Single-byte local-variable index or immediate.
	set(1, OpBipush, OpLdc, 21, 22, 23, 24, 25, 54, 55, 56, 57, 58, OpRet, OpNewarray)
	// Two-byte constant-pool index, branch offset, or immediate.
	set(2, OpSipush, OpLdcW, OpLdc2W, OpIinc,
		153, 154, 155, 156, 157, 158, // ifeq..ifle
		159, 160, 161, 162, 163, 164, 165, 166, // if_icmp*, if_acmp*
		167, 168, // goto, jsr
		OpGetstatic, OpPutstatic, OpGetfield, OpPutfield,
		OpInvokevirtual, OpInvokespecial, OpInvokestatic,
		OpNew, OpAnewarray, OpCheckcast, OpInstanceof,
		198, 199) // ifnull, ifnonnull
	set(3, OpMultianewarray)
	set(4, OpInvokeinterface, OpInvokedynamic, OpGotoW, OpJsrW)
	set(variableLength, OpWide, OpTableswitch, OpLookupswitch)
}

// carriesCPIndex marks opcodes whose first operand is a constant-pool index.
var carriesCPIndex = map[Opcode]bool{
	OpLdc: true, OpLdcW: true, OpLdc2W: true,
	OpGetstatic: true, OpPutstatic: true, OpGetfield: true, OpPutfield: true,
	OpInvokevirtual: true, OpInvokespecial: true, OpInvokestatic: true,
	OpInvokeinterface: true, OpInvokedynamic: true,
	OpNew: true, OpAnewarray: true, OpCheckcast: true, OpInstanceof: true,
	OpMultianewarray: true,
}
