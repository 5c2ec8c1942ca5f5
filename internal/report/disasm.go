package report

import (
	"fmt"
	"strings"

	"jarmap/internal/bytecode"
	"jarmap/internal/classfile"
)

// DisasmVisitor renders each class as pseudo-source: a compilable-looking
// declaration whose method bodies are comment lines, one per decoded
// instruction, recreating the flavor of the javap utility. No state
// persists across classes beyond the output accumulator.
type DisasmVisitor struct {
	b strings.Builder
}

// NewDisasmVisitor creates an empty disassembly accumulator.
func NewDisasmVisitor() *DisasmVisitor {
	return &DisasmVisitor{}
}

// VisitClass appends one pseudo-source block for the class.
func (v *DisasmVisitor) VisitClass(cf *classfile.ClassFile) error {
	v.b.WriteString(Separator + "\n")

	if pkg := cf.PackageName(); pkg != "" {
		fmt.Fprintf(&v.b, "package %s;\n\n", pkg)
	}

	if cf.IsInterface() {
		fmt.Fprintf(&v.b, "public interface %s {\n", cf.SimpleName())
		if err := v.writeMethods(cf); err != nil {
			return err
		}
		v.b.WriteString("}\n")
		return nil
	}

	fmt.Fprintf(&v.b, "public class %s", cf.SimpleName())
	if super, ok := cf.SuperClassName(); ok && super != "java.lang.Object" {
		fmt.Fprintf(&v.b, " extends %s", super)
	}
	if len(cf.Interfaces) > 0 {
		fmt.Fprintf(&v.b, " implements %s", strings.Join(cf.Interfaces, ", "))
	}
	v.b.WriteString(" {\n")

	v.writeFields(cf)
	if err := v.writeMethods(cf); err != nil {
		return err
	}
	v.b.WriteString("}\n")
	return nil
}

func (v *DisasmVisitor) writeFields(cf *classfile.ClassFile) {
	wrote := false
	for i := range cf.Fields {
		f := &cf.Fields[i]
		if f.IsSynthetic() {
			continue
		}
		fmt.Fprintf(&v.b, "\t%s;\n", fieldDecl(f))
		wrote = true
	}
	if wrote {
		v.b.WriteByte('\n')
	}
}

func (v *DisasmVisitor) writeMethods(cf *classfile.ClassFile) error {
	for i := range cf.Methods {
		m := &cf.Methods[i]
		if i > 0 {
			v.b.WriteString("\n\n")
		}
		v.b.WriteByte('\t')
		v.b.WriteString(methodDecl(cf, m))

		if m.Code == nil {
			v.b.WriteString(";\n")
			continue
		}
		v.b.WriteString(" {\n")
		if err := v.writeInstructions(cf, m.Code.Bytecode); err != nil {
			return fmt.Errorf("disassembling %s.%s: %w", cf.ClassName(), m.Name, err)
		}
		v.b.WriteString("\t}")
	}
	if len(cf.Methods) > 0 {
		v.b.WriteByte('\n')
	}
	return nil
}

// writeInstructions renders one comment line per instruction: offset,
// mnemonic, and the resolved constant-pool reference when the instruction
// carries a pool index.
func (v *DisasmVisitor) writeInstructions(cf *classfile.ClassFile, code []byte) error {
	d := bytecode.NewDecoder(code)
	for {
		in, ok, err := d.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		ref := ""
		if idx, has := in.CPIndex(); has {
			ref = cf.ConstantPool.Describe(idx)
			switch in.Opcode {
			case bytecode.OpNew, bytecode.OpAnewarray, bytecode.OpCheckcast,
				bytecode.OpInstanceof, bytecode.OpMultianewarray:
				ref = "<" + ref + ">"
			}
		}
		fmt.Fprintf(&v.b, "\t\t// %-4d: %-20s %s\n", in.Offset, in.Opcode.Mnemonic(), ref)
	}
}

// Result returns the accumulated disassembly.
func (v *DisasmVisitor) Result() string {
	return v.b.String()
}
