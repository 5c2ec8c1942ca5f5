package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Constant pool tags from the class file format.
const (
	TagUtf8               uint8 = 1
	TagInteger            uint8 = 3
	TagFloat              uint8 = 4
	TagLong               uint8 = 5
	TagDouble             uint8 = 6
	TagClass              uint8 = 7
	TagString             uint8 = 8
	TagFieldRef           uint8 = 9
	TagMethodRef          uint8 = 10
	TagInterfaceMethodRef uint8 = 11
	TagNameAndType        uint8 = 12
	TagMethodHandle       uint8 = 15
	TagMethodType         uint8 = 16
	TagDynamic            uint8 = 17
	TagInvokeDynamic      uint8 = 18
	TagModule             uint8 = 19
	TagPackage            uint8 = 20
)

var tagNames = map[uint8]string{
	TagUtf8:               "Utf8",
	TagInteger:            "Integer",
	TagFloat:              "Float",
	TagLong:               "Long",
	TagDouble:             "Double",
	TagClass:              "Class",
	TagString:             "String",
	TagFieldRef:           "Fieldref",
	TagMethodRef:          "Methodref",
	TagInterfaceMethodRef: "InterfaceMethodref",
	TagNameAndType:        "NameAndType",
	TagMethodHandle:       "MethodHandle",
	TagMethodType:         "MethodType",
	TagDynamic:            "Dynamic",
	TagInvokeDynamic:      "InvokeDynamic",
	TagModule:             "Module",
	TagPackage:            "Package",
}

// Constant is one constant pool entry. Which fields are meaningful depends
// on Tag; the rest stay zero. Index fields are 1-based pool indices:
//
//	Class, Module, Package:          Index1 = name (Utf8)
//	String, MethodType:              Index1 = utf8/descriptor
//	FieldRef, MethodRef,
//	InterfaceMethodRef:              Index1 = class, Index2 = name-and-type
//	NameAndType:                     Index1 = name, Index2 = descriptor
//	Dynamic, InvokeDynamic:          Index1 = bootstrap method, Index2 = name-and-type
//	MethodHandle:                    RefKind = kind, Index1 = reference
type Constant struct {
	Tag     uint8
	Utf8    string
	Index1  uint16
	Index2  uint16
	RefKind uint8
	Int     int32
	Long    int64
	Float   float32
	Double  float64
}

// slots reports how many pool index slots the entry occupies.
func (c *Constant) slots() int {
	if c.Tag == TagLong || c.Tag == TagDouble {
		return 2
	}
	return 1
}

// Encode serializes the entry back to its tag byte followed by its payload,
// byte for byte as it appears in a class file.
func (c *Constant) Encode() []byte {
	out := []byte{c.Tag}
	u16 := func(v uint16) { out = binary.BigEndian.AppendUint16(out, v) }
	switch c.Tag {
	case TagUtf8:
		u16(uint16(len(c.Utf8)))
		out = append(out, c.Utf8...)
	case TagInteger:
		out = binary.BigEndian.AppendUint32(out, uint32(c.Int))
	case TagFloat:
		out = binary.BigEndian.AppendUint32(out, math.Float32bits(c.Float))
	case TagLong:
		out = binary.BigEndian.AppendUint64(out, uint64(c.Long))
	case TagDouble:
		out = binary.BigEndian.AppendUint64(out, math.Float64bits(c.Double))
	case TagClass, TagString, TagMethodType, TagModule, TagPackage:
		u16(c.Index1)
	case TagMethodHandle:
		out = append(out, c.RefKind)
		u16(c.Index1)
	default:
		// Two-index entries: refs, name-and-type, dynamic.
		u16(c.Index1)
		u16(c.Index2)
	}
	return out
}

// ConstantPool is the 1-indexed constant table of a single class. Slot 0 is
// unused; Long and Double entries occupy two slots, the second left with a
// zero tag.
type ConstantPool []Constant

// decodeConstantPool reads the constant-pool-count field and the entries
// that follow it.
func decodeConstantPool(r *Reader) (ConstantPool, error) {
	count, err := r.U16()
	if err != nil {
		return nil, err
	}
	pool := make(ConstantPool, count)
	for i := 1; i < int(count); {
		at := r.Offset()
		tag, err := r.U8()
		if err != nil {
			return nil, err
		}
		c := Constant{Tag: tag}
		switch tag {
		case TagUtf8:
			n, err := r.U16()
			if err != nil {
				return nil, err
			}
			b, err := r.Bytes(int(n))
			if err != nil {
				return nil, err
			}
			c.Utf8 = string(b)
		case TagInteger:
			v, err := r.U32()
			if err != nil {
				return nil, err
			}
			c.Int = int32(v)
		case TagFloat:
			v, err := r.U32()
			if err != nil {
				return nil, err
			}
			c.Float = math.Float32frombits(v)
		case TagLong:
			v, err := r.U64()
			if err != nil {
				return nil, err
			}
			c.Long = int64(v)
		case TagDouble:
			v, err := r.U64()
			if err != nil {
				return nil, err
			}
			c.Double = math.Float64frombits(v)
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			if c.Index1, err = r.U16(); err != nil {
				return nil, err
			}
		case TagMethodHandle:
			if c.RefKind, err = r.U8(); err != nil {
				return nil, err
			}
			if c.Index1, err = r.U16(); err != nil {
				return nil, err
			}
		case TagFieldRef, TagMethodRef, TagInterfaceMethodRef, TagNameAndType, TagDynamic, TagInvokeDynamic:
			if c.Index1, err = r.U16(); err != nil {
				return nil, err
			}
			if c.Index2, err = r.U16(); err != nil {
				return nil, err
			}
		default:
			return nil, parseErrorf(at, ErrMalformedConstantPool, "unknown tag %d", tag)
		}
		pool[i] = c
		// Long and Double take two slots; the slot after them stays unused.
		i += c.slots()
	}
	return pool, nil
}

// at returns the entry at a 1-based index, checking it carries the wanted tag.
func (cp ConstantPool) at(index uint16, want uint8) (*Constant, error) {
	if index == 0 || int(index) >= len(cp) {
		return nil, fmt.Errorf("%w: index %d out of range (pool size %d)", ErrMalformedConstantPool, index, len(cp))
	}
	c := &cp[index]
	if c.Tag != want {
		return nil, fmt.Errorf("%w: entry %d is %s, want %s", ErrMalformedConstantPool, index, tagNames[c.Tag], tagNames[want])
	}
	return c, nil
}

// Utf8 resolves a Utf8 entry to its string value.
func (cp ConstantPool) Utf8(index uint16) (string, error) {
	c, err := cp.at(index, TagUtf8)
	if err != nil {
		return "", err
	}
	return c.Utf8, nil
}

// ClassName resolves a Class entry to its name in external (dotted) form.
func (cp ConstantPool) ClassName(index uint16) (string, error) {
	c, err := cp.at(index, TagClass)
	if err != nil {
		return "", err
	}
	name, err := cp.Utf8(c.Index1)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(name, "/", "."), nil
}

// NameAndType resolves a NameAndType entry to its name and descriptor.
func (cp ConstantPool) NameAndType(index uint16) (name, descriptor string, err error) {
	c, err := cp.at(index, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = cp.Utf8(c.Index1); err != nil {
		return "", "", err
	}
	if descriptor, err = cp.Utf8(c.Index2); err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// MethodRef resolves a MethodRef or InterfaceMethodRef entry to the declaring
// class name (dotted) and the method name.
func (cp ConstantPool) MethodRef(index uint16) (class, name string, err error) {
	if index == 0 || int(index) >= len(cp) {
		return "", "", fmt.Errorf("%w: index %d out of range (pool size %d)", ErrMalformedConstantPool, index, len(cp))
	}
	c := &cp[index]
	if c.Tag != TagMethodRef && c.Tag != TagInterfaceMethodRef {
		return "", "", fmt.Errorf("%w: entry %d is %s, want a method reference", ErrMalformedConstantPool, index, tagNames[c.Tag])
	}
	if class, err = cp.ClassName(c.Index1); err != nil {
		return "", "", err
	}
	if name, _, err = cp.NameAndType(c.Index2); err != nil {
		return "", "", err
	}
	return class, name, nil
}

// Describe renders the entry at index as human-readable text for
// disassembly output. It is best-effort and returns an empty string for
// indices that do not resolve.
func (cp ConstantPool) Describe(index uint16) string {
	if index == 0 || int(index) >= len(cp) {
		return ""
	}
	c := &cp[index]
	switch c.Tag {
	case TagUtf8:
		return c.Utf8
	case TagInteger:
		return fmt.Sprintf("%d", c.Int)
	case TagFloat:
		return fmt.Sprintf("%g", c.Float)
	case TagLong:
		return fmt.Sprintf("%d", c.Long)
	case TagDouble:
		return fmt.Sprintf("%g", c.Double)
	case TagClass:
		name, err := cp.ClassName(index)
		if err != nil {
			return ""
		}
		return name
	case TagString:
		s, err := cp.Utf8(c.Index1)
		if err != nil {
			return ""
		}
		return fmt.Sprintf("%q", s)
	case TagFieldRef, TagMethodRef, TagInterfaceMethodRef:
		class, err := cp.ClassName(c.Index1)
		if err != nil {
			return ""
		}
		name, desc, err := cp.NameAndType(c.Index2)
		if err != nil {
			return ""
		}
		return class + "." + name + " " + desc
	case TagNameAndType:
		name, desc, err := cp.NameAndType(index)
		if err != nil {
			return ""
		}
		return name + " " + desc
	case TagMethodType:
		s, err := cp.Utf8(c.Index1)
		if err != nil {
			return ""
		}
		return s
	case TagDynamic, TagInvokeDynamic:
		name, desc, err := cp.NameAndType(c.Index2)
		if err != nil {
			return ""
		}
		return fmt.Sprintf("#%d %s %s", c.Index1, name, desc)
	}
	return ""
}

// String renders the whole pool, one entry per line, for the structural
// report.
func (cp ConstantPool) String() string {
	var b strings.Builder
	for i := 1; i < len(cp); i++ {
		c := &cp[i]
		if c.Tag == 0 {
			continue // second slot of a Long/Double entry
		}
		fmt.Fprintf(&b, "\t#%d = %s\t%s\n", i, tagNames[c.Tag], cp.Describe(uint16(i)))
	}
	return b.String()
}
