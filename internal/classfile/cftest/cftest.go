// Package cftest builds small synthetic class files for tests, so test
// inputs can be declared in terms of classes and methods instead of raw
// byte slices.
package cftest

import (
	"encoding/binary"
	"fmt"
	"strings"

	"jarmap/internal/classfile"
)

// Handler is one exception table row of a built method. An empty CatchType
// produces a catch-all entry.
type Handler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType string
}

// Method declares one method to add to a built class. A nil Code omits the
// Code attribute, as abstract and native methods do.
type Method struct {
	Flags      uint16
	Name       string
	Descriptor string
	Code       []byte
	Handlers   []Handler
}

type field struct {
	flags   uint16
	nameIdx uint16
	descIdx uint16
}

type method struct {
	flags    uint16
	nameIdx  uint16
	descIdx  uint16
	code     []byte
	hasCode  bool
	handlers []handler
}

type handler struct {
	startPC, endPC, handlerPC, catchIdx uint16
}

// Builder accumulates a constant pool and member tables and serializes
// them as a complete class file. Pool entries are deduplicated.
type Builder struct {
	major, minor uint16
	flags        uint16

	pool      []classfile.Constant
	nextIndex uint16
	dedup     map[string]uint16

	thisClass  uint16
	superClass uint16
	interfaces []uint16
	fields     []field
	methods    []method
	sourceFile uint16
}

// NewBuilder starts a public class with the given dotted name extending
// java.lang.Object, targeting the Java 8 format.
func NewBuilder(className string) *Builder {
	b := &Builder{
		major:     52,
		flags:     classfile.AccPublic,
		nextIndex: 1,
		dedup:     make(map[string]uint16),
	}
	b.thisClass = b.ClassRef(className)
	b.superClass = b.ClassRef("java.lang.Object")
	return b
}

// SetVersion overrides the class file version.
func (b *Builder) SetVersion(major, minor uint16) { b.major, b.minor = major, minor }

// SetFlags overrides the class access flags.
func (b *Builder) SetFlags(flags uint16) { b.flags = flags }

// SetSuper replaces the superclass. An empty name clears it, which only
// java.lang.Object legitimately has.
func (b *Builder) SetSuper(className string) {
	if className == "" {
		b.superClass = 0
		return
	}
	b.superClass = b.ClassRef(className)
}

// AddInterface adds an implemented interface by dotted name.
func (b *Builder) AddInterface(className string) {
	b.interfaces = append(b.interfaces, b.ClassRef(className))
}

// SetSourceFile attaches a SourceFile attribute.
func (b *Builder) SetSourceFile(name string) { b.sourceFile = b.Utf8(name) }

// Utf8 interns a Utf8 entry and returns its pool index.
func (b *Builder) Utf8(s string) uint16 {
	return b.intern("u:"+s, classfile.Constant{Tag: classfile.TagUtf8, Utf8: s})
}

// ClassRef interns a Class entry for the dotted class name.
func (b *Builder) ClassRef(className string) uint16 {
	internal := strings.ReplaceAll(className, ".", "/")
	nameIdx := b.Utf8(internal)
	return b.intern("c:"+internal, classfile.Constant{Tag: classfile.TagClass, Index1: nameIdx})
}

// NameAndType interns a NameAndType entry.
func (b *Builder) NameAndType(name, descriptor string) uint16 {
	nameIdx := b.Utf8(name)
	descIdx := b.Utf8(descriptor)
	return b.intern("nt:"+name+":"+descriptor,
		classfile.Constant{Tag: classfile.TagNameAndType, Index1: nameIdx, Index2: descIdx})
}

// MethodRef interns a Methodref entry for the dotted class name and returns
// its pool index, for use as an invoke instruction operand.
func (b *Builder) MethodRef(className, name, descriptor string) uint16 {
	classIdx := b.ClassRef(className)
	ntIdx := b.NameAndType(name, descriptor)
	return b.intern("m:"+className+":"+name+":"+descriptor,
		classfile.Constant{Tag: classfile.TagMethodRef, Index1: classIdx, Index2: ntIdx})
}

// InterfaceMethodRef interns an InterfaceMethodref entry.
func (b *Builder) InterfaceMethodRef(className, name, descriptor string) uint16 {
	classIdx := b.ClassRef(className)
	ntIdx := b.NameAndType(name, descriptor)
	return b.intern("im:"+className+":"+name+":"+descriptor,
		classfile.Constant{Tag: classfile.TagInterfaceMethodRef, Index1: classIdx, Index2: ntIdx})
}

// StringConst interns a String entry.
func (b *Builder) StringConst(s string) uint16 {
	utf8Idx := b.Utf8(s)
	return b.intern("s:"+s, classfile.Constant{Tag: classfile.TagString, Index1: utf8Idx})
}

// Long interns a Long entry, which occupies two pool slots.
func (b *Builder) Long(v int64) uint16 {
	return b.intern(fmt.Sprintf("l:%d", v), classfile.Constant{Tag: classfile.TagLong, Long: v})
}

// Double interns a Double entry, which occupies two pool slots.
func (b *Builder) Double(v float64) uint16 {
	return b.intern(fmt.Sprintf("d:%g", v), classfile.Constant{Tag: classfile.TagDouble, Double: v})
}

func (b *Builder) intern(key string, c classfile.Constant) uint16 {
	if idx, ok := b.dedup[key]; ok {
		return idx
	}
	idx := b.nextIndex
	b.pool = append(b.pool, c)
	b.dedup[key] = idx
	b.nextIndex++
	if c.Tag == classfile.TagLong || c.Tag == classfile.TagDouble {
		b.nextIndex++
	}
	return idx
}

// AddField adds a field with no attributes.
func (b *Builder) AddField(flags uint16, name, descriptor string) {
	b.fields = append(b.fields, field{
		flags:   flags,
		nameIdx: b.Utf8(name),
		descIdx: b.Utf8(descriptor),
	})
}

// AddMethod adds a method. When m.Code is non-nil a Code attribute wraps
// it, along with any declared exception handlers.
func (b *Builder) AddMethod(m Method) {
	mm := method{
		flags:   m.Flags,
		nameIdx: b.Utf8(m.Name),
		descIdx: b.Utf8(m.Descriptor),
		code:    m.Code,
		hasCode: m.Code != nil,
	}
	for _, h := range m.Handlers {
		var catchIdx uint16
		if h.CatchType != "" {
			catchIdx = b.ClassRef(h.CatchType)
		}
		mm.handlers = append(mm.handlers, handler{
			startPC: h.StartPC, endPC: h.EndPC, handlerPC: h.HandlerPC, catchIdx: catchIdx,
		})
	}
	b.methods = append(b.methods, mm)
}

// Bytes serializes the class file.
func (b *Builder) Bytes() []byte {
	// The attribute names must be interned before the pool is emitted.
	var codeAttr uint16
	for _, m := range b.methods {
		if m.hasCode {
			codeAttr = b.Utf8("Code")
			break
		}
	}
	var srcAttr uint16
	if b.sourceFile != 0 {
		srcAttr = b.Utf8("SourceFile")
	}

	var out []byte
	u16 := func(v uint16) { out = binary.BigEndian.AppendUint16(out, v) }
	u32 := func(v uint32) { out = binary.BigEndian.AppendUint32(out, v) }

	u32(classfile.Magic)
	u16(b.minor)
	u16(b.major)

	u16(b.nextIndex) // constant_pool_count is highest index + 1
	for i := range b.pool {
		out = append(out, b.pool[i].Encode()...)
	}

	u16(b.flags)
	u16(b.thisClass)
	u16(b.superClass)

	u16(uint16(len(b.interfaces)))
	for _, idx := range b.interfaces {
		u16(idx)
	}

	u16(uint16(len(b.fields)))
	for _, f := range b.fields {
		u16(f.flags)
		u16(f.nameIdx)
		u16(f.descIdx)
		u16(0) // no attributes
	}

	u16(uint16(len(b.methods)))
	for _, m := range b.methods {
		u16(m.flags)
		u16(m.nameIdx)
		u16(m.descIdx)
		if !m.hasCode {
			u16(0)
			continue
		}
		u16(1)
		u16(codeAttr)
		body := encodeCode(m)
		u32(uint32(len(body)))
		out = append(out, body...)
	}

	if b.sourceFile != 0 {
		u16(1)
		u16(srcAttr)
		u32(2)
		u16(b.sourceFile)
	} else {
		u16(0)
	}
	return out
}

func encodeCode(m method) []byte {
	var out []byte
	u16 := func(v uint16) { out = binary.BigEndian.AppendUint16(out, v) }
	u16(8) // max_stack
	u16(8) // max_locals
	out = binary.BigEndian.AppendUint32(out, uint32(len(m.code)))
	out = append(out, m.code...)
	u16(uint16(len(m.handlers)))
	for _, h := range m.handlers {
		u16(h.startPC)
		u16(h.endPC)
		u16(h.handlerPC)
		u16(h.catchIdx)
	}
	u16(0) // no nested attributes
	return out
}
