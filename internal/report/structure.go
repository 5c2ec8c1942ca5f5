package report

import (
	"fmt"
	"strings"

	"jarmap/internal/classfile"
)

// Separator delimits per-class and per-method blocks in all rendered output.
const Separator = "================================"

// StructureVisitor renders one structural record block per class: version
// numbers, source file, constant pool, package, declaration line, and the
// fields, constructors, and methods with their raw access flags in hex.
type StructureVisitor struct {
	b strings.Builder
}

// NewStructureVisitor creates an empty structural report accumulator.
func NewStructureVisitor() *StructureVisitor {
	return &StructureVisitor{}
}

// VisitClass appends one record block for the class.
func (v *StructureVisitor) VisitClass(cf *classfile.ClassFile) error {
	v.b.WriteString("\n" + Separator)

	fmt.Fprintf(&v.b, "\nMajor version: %d", cf.MajorVersion)
	fmt.Fprintf(&v.b, "\nMinor version: %d", cf.MinorVersion)
	fmt.Fprintf(&v.b, "\nOriginal source file: %s", cf.SourceFile)

	v.b.WriteString("\nConstant pool:\n")
	v.b.WriteString(cf.ConstantPool.String())

	if pkg := cf.PackageName(); pkg != "" {
		fmt.Fprintf(&v.b, "Package: %s\n", pkg)
	}
	fmt.Fprintf(&v.b, "Class: %s", cf.ClassName())

	if super, ok := cf.SuperClassName(); ok && super != "java.lang.Object" {
		fmt.Fprintf(&v.b, "\nExtended superclass: %s", super)
	}
	if len(cf.Interfaces) > 0 {
		v.b.WriteString("\nImplemented interfaces:")
		for _, iface := range cf.Interfaces {
			fmt.Fprintf(&v.b, "\n\t%s", iface)
		}
	}

	if len(cf.Fields) > 0 {
		v.b.WriteString("\nFields:")
		for i := range cf.Fields {
			f := &cf.Fields[i]
			fmt.Fprintf(&v.b, "\n\t(0x%x) %s", f.AccessFlags, fieldDecl(f))
		}
	}

	v.writeMethods(cf, "Constructors:", true)
	v.writeMethods(cf, "Methods:", false)
	return nil
}

// writeMethods appends the header and one line per method, split between
// constructors and regular methods.
func (v *StructureVisitor) writeMethods(cf *classfile.ClassFile, header string, constructors bool) {
	wrote := false
	for i := range cf.Methods {
		m := &cf.Methods[i]
		if m.IsConstructor() != constructors {
			continue
		}
		if !wrote {
			v.b.WriteString("\n" + header)
			wrote = true
		}
		fmt.Fprintf(&v.b, "\n\t(0x%x) %s", m.AccessFlags, methodDecl(cf, m))
	}
}

// Result returns the accumulated report.
func (v *StructureVisitor) Result() string {
	return v.b.String()
}
