package classfile

import "strings"

// Magic is the fixed number every class file starts with.
const Magic = 0xCAFEBABE

// Access and property flags for classes, fields, and methods.
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSynchronized = 0x0020
	AccVolatile     = 0x0040
	AccTransient    = 0x0080
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
)

// ClassFile is one decoded class with its owning constant pool. Name and
// descriptor indices are resolved eagerly at parse time so a ClassFile is
// self-describing; the pool stays attached for bytecode-level lookups.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool ConstantPool
	AccessFlags  uint16
	Interfaces   []string
	Fields       []Member
	Methods      []Member
	SourceFile   string // empty when the SourceFile attribute is absent

	className string
	superName string // empty only for java.lang.Object
}

// Member is one field or method. Code is non-nil only for methods that
// carry a Code attribute (neither abstract nor native).
type Member struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Code        *Code
}

// Code is a method's Code attribute body.
type Code struct {
	MaxStack   uint16
	MaxLocals  uint16
	Bytecode   []byte
	Exceptions []ExceptionHandler
}

// ExceptionHandler is one row of a Code attribute's exception table.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType string // empty for a catch-all handler
}

func (m *Member) IsStatic() bool    { return m.AccessFlags&AccStatic != 0 }
func (m *Member) IsAbstract() bool  { return m.AccessFlags&AccAbstract != 0 }
func (m *Member) IsNative() bool    { return m.AccessFlags&AccNative != 0 }
func (m *Member) IsSynthetic() bool { return m.AccessFlags&AccSynthetic != 0 }

// IsConstructor reports whether the member is an instance initializer.
func (m *Member) IsConstructor() bool { return m.Name == "<init>" }

// ClassName returns the fully qualified name in external (dotted) form.
func (cf *ClassFile) ClassName() string { return cf.className }

// SuperClassName returns the superclass name, or false when the class has
// none (only java.lang.Object).
func (cf *ClassFile) SuperClassName() (string, bool) {
	return cf.superName, cf.superName != ""
}

// PackageName returns the package part of the class name, empty for the
// default package.
func (cf *ClassFile) PackageName() string {
	if i := strings.LastIndexByte(cf.className, '.'); i >= 0 {
		return cf.className[:i]
	}
	return ""
}

// SimpleName returns the class name without its package.
func (cf *ClassFile) SimpleName() string {
	if i := strings.LastIndexByte(cf.className, '.'); i >= 0 {
		return cf.className[i+1:]
	}
	return cf.className
}

// IsInterface reports whether the class file defines an interface.
func (cf *ClassFile) IsInterface() bool { return cf.AccessFlags&AccInterface != 0 }

// Parse decodes a complete class file from data. Parsing is not
// best-effort: the first structural inconsistency aborts with a ParseError
// carrying the byte offset.
func Parse(data []byte) (*ClassFile, error) {
	r := NewReader(data)

	magic, err := r.U32()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, parseErrorf(0, ErrNotAClassFile, "magic 0x%08x", magic)
	}

	cf := &ClassFile{}
	if cf.MinorVersion, err = r.U16(); err != nil {
		return nil, err
	}
	if cf.MajorVersion, err = r.U16(); err != nil {
		return nil, err
	}
	if cf.ConstantPool, err = decodeConstantPool(r); err != nil {
		return nil, err
	}
	if cf.AccessFlags, err = r.U16(); err != nil {
		return nil, err
	}

	thisClass, err := r.U16()
	if err != nil {
		return nil, err
	}
	if cf.className, err = cf.ConstantPool.ClassName(thisClass); err != nil {
		return nil, parseErrorf(r.Offset(), ErrMalformedClassFile, "this_class: %v", err)
	}
	superClass, err := r.U16()
	if err != nil {
		return nil, err
	}
	// Index 0 means no superclass, which only java.lang.Object has.
	if superClass != 0 {
		if cf.superName, err = cf.ConstantPool.ClassName(superClass); err != nil {
			return nil, parseErrorf(r.Offset(), ErrMalformedClassFile, "super_class: %v", err)
		}
	}

	ifaceCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(ifaceCount); i++ {
		idx, err := r.U16()
		if err != nil {
			return nil, err
		}
		name, err := cf.ConstantPool.ClassName(idx)
		if err != nil {
			return nil, parseErrorf(r.Offset(), ErrMalformedClassFile, "interface %d: %v", i, err)
		}
		cf.Interfaces = append(cf.Interfaces, name)
	}

	if cf.Fields, err = cf.parseMembers(r); err != nil {
		return nil, err
	}
	if cf.Methods, err = cf.parseMembers(r); err != nil {
		return nil, err
	}

	// Top-level attributes; only SourceFile is interpreted here.
	attrCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(attrCount); i++ {
		name, body, err := cf.parseAttribute(r)
		if err != nil {
			return nil, err
		}
		if name == "SourceFile" {
			idx, err := body.U16()
			if err != nil {
				return nil, err
			}
			if cf.SourceFile, err = cf.ConstantPool.Utf8(idx); err != nil {
				return nil, parseErrorf(body.Offset(), ErrMalformedClassFile, "SourceFile: %v", err)
			}
		}
	}
	return cf, nil
}

// parseMembers reads a count-prefixed field or method table.
func (cf *ClassFile) parseMembers(r *Reader) ([]Member, error) {
	count, err := r.U16()
	if err != nil {
		return nil, err
	}
	members := make([]Member, 0, count)
	for i := 0; i < int(count); i++ {
		var m Member
		if m.AccessFlags, err = r.U16(); err != nil {
			return nil, err
		}
		nameIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		if m.Name, err = cf.ConstantPool.Utf8(nameIdx); err != nil {
			return nil, parseErrorf(r.Offset(), ErrMalformedClassFile, "member name: %v", err)
		}
		descIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		if m.Descriptor, err = cf.ConstantPool.Utf8(descIdx); err != nil {
			return nil, parseErrorf(r.Offset(), ErrMalformedClassFile, "member descriptor: %v", err)
		}
		attrCount, err := r.U16()
		if err != nil {
			return nil, err
		}
		for j := 0; j < int(attrCount); j++ {
			name, body, err := cf.parseAttribute(r)
			if err != nil {
				return nil, err
			}
			if name == "Code" {
				if m.Code, err = cf.parseCode(body); err != nil {
					return nil, err
				}
			}
		}
		members = append(members, m)
	}
	return members, nil
}

// parseAttribute reads one attribute header and returns its name together
// with a bounded reader over the attribute body.
func (cf *ClassFile) parseAttribute(r *Reader) (string, *Reader, error) {
	nameIdx, err := r.U16()
	if err != nil {
		return "", nil, err
	}
	name, err := cf.ConstantPool.Utf8(nameIdx)
	if err != nil {
		return "", nil, parseErrorf(r.Offset(), ErrMalformedClassFile, "attribute name: %v", err)
	}
	length, err := r.U32()
	if err != nil {
		return "", nil, err
	}
	body, err := r.Sub(int(length))
	if err != nil {
		return "", nil, err
	}
	return name, body, nil
}

// parseCode decodes a Code attribute body. Nested attributes are skipped;
// the bounded body reader already accounts for their length.
func (cf *ClassFile) parseCode(r *Reader) (*Code, error) {
	var c Code
	var err error
	if c.MaxStack, err = r.U16(); err != nil {
		return nil, err
	}
	if c.MaxLocals, err = r.U16(); err != nil {
		return nil, err
	}
	codeLen, err := r.U32()
	if err != nil {
		return nil, err
	}
	if c.Bytecode, err = r.Bytes(int(codeLen)); err != nil {
		return nil, err
	}
	excCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(excCount); i++ {
		var h ExceptionHandler
		if h.StartPC, err = r.U16(); err != nil {
			return nil, err
		}
		if h.EndPC, err = r.U16(); err != nil {
			return nil, err
		}
		if h.HandlerPC, err = r.U16(); err != nil {
			return nil, err
		}
		catchIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		// Index 0 marks a catch-all handler (finally blocks).
		if catchIdx != 0 {
			if h.CatchType, err = cf.ConstantPool.ClassName(catchIdx); err != nil {
				return nil, parseErrorf(r.Offset(), ErrMalformedClassFile, "catch type: %v", err)
			}
		}
		c.Exceptions = append(c.Exceptions, h)
	}
	return &c, nil
}
