package classfile

import (
	"errors"
	"fmt"
)

// Decode failure taxonomy. Every error produced while decoding a class
// wraps one of these sentinels, so callers can classify failures with
// errors.Is regardless of how deep the failure occurred.
var (
	ErrTruncated             = errors.New("truncated input")
	ErrNotAClassFile         = errors.New("not a class file")
	ErrMalformedConstantPool = errors.New("malformed constant pool")
	ErrMalformedClassFile    = errors.New("malformed class file")
	ErrUnresolvedSymbol      = errors.New("unresolved symbol")
)

// ParseError reports a structural inconsistency together with the byte
// offset at which it was detected.
type ParseError struct {
	Offset int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v (offset %d)", e.Err, e.Offset)
}

func (e *ParseError) Unwrap() error { return e.Err }

// parseErrorf builds a ParseError wrapping the given sentinel.
func parseErrorf(offset int, sentinel error, format string, args ...any) *ParseError {
	return &ParseError{
		Offset: offset,
		Err:    fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...),
	}
}
