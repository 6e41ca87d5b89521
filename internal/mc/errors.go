// Completion: 100% - Error taxonomy complete
package mc

import (
	"errors"
	"fmt"
)

// Kind classifies a code generation failure
type Kind int

const (
	KindInvalid     Kind = iota // value outside what the target form can represent
	KindUnsupported             // form reached the encoder without being lowered
	KindBuf                     // patch outside the emitted byte range, or buffer already committed
	KindReloc                   // inconsistent relocation bookkeeping
	KindRA                      // scratch register pool exhausted
	KindLower                   // IR shape the target cannot express
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnsupported:
		return "unsupported"
	case KindBuf:
		return "buffer"
	case KindReloc:
		return "relocation"
	case KindRA:
		return "register allocation"
	case KindLower:
		return "lowering"
	default:
		return "unknown"
	}
}

// Error is returned by every fallible operation in the code generator
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Msg)
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrInvalid) works
// on wrapped errors regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrInvalid     = &Error{Kind: KindInvalid}
	ErrUnsupported = &Error{Kind: KindUnsupported}
	ErrBuf         = &Error{Kind: KindBuf}
	ErrReloc       = &Error{Kind: KindReloc}
	ErrRA          = &Error{Kind: KindRA}
	ErrLower       = &Error{Kind: KindLower}
)

// Errorf creates an error of the given kind
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of the first *Error in err's chain
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
