package classfile

import (
	"fmt"
	"strings"
)

var baseTypes = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
	'V': "void",
}

// parseType decodes one type descriptor starting at desc[pos] and returns
// its source-level name and the position after it.
func parseType(desc string, pos int) (string, int, error) {
	if pos >= len(desc) {
		return "", pos, fmt.Errorf("%w: descriptor %q too short", ErrMalformedClassFile, desc)
	}
	switch c := desc[pos]; c {
	case 'L':
		end := strings.IndexByte(desc[pos:], ';')
		if end < 0 {
			return "", pos, fmt.Errorf("%w: unterminated class type in %q", ErrMalformedClassFile, desc)
		}
		name := strings.ReplaceAll(desc[pos+1:pos+end], "/", ".")
		return name, pos + end + 1, nil
	case '[':
		elem, next, err := parseType(desc, pos+1)
		if err != nil {
			return "", pos, err
		}
		return elem + "[]", next, nil
	default:
		name, ok := baseTypes[c]
		if !ok {
			return "", pos, fmt.Errorf("%w: unknown type %q in %q", ErrMalformedClassFile, c, desc)
		}
		return name, pos + 1, nil
	}
}

// FieldType renders a field descriptor as a source-level type name.
// Unparseable descriptors are returned verbatim so rendering never fails.
func FieldType(desc string) string {
	name, _, err := parseType(desc, 0)
	if err != nil {
		return desc
	}
	return name
}

// MethodSignature renders a method descriptor as "returnType name(params)".
// Unparseable descriptors fall back to "name desc".
func MethodSignature(name, desc string) string {
	if len(desc) == 0 || desc[0] != '(' {
		return name + " " + desc
	}
	var params []string
	pos := 1
	for pos < len(desc) && desc[pos] != ')' {
		t, next, err := parseType(desc, pos)
		if err != nil {
			return name + " " + desc
		}
		params = append(params, t)
		pos = next
	}
	if pos >= len(desc) {
		return name + " " + desc
	}
	ret, _, err := parseType(desc, pos+1)
	if err != nil {
		return name + " " + desc
	}
	return fmt.Sprintf("%s %s(%s)", ret, name, strings.Join(params, ", "))
}
