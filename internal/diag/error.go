package diag

import (
	"errors"
	"fmt"
)

// Error is a coded failure produced by the generator. Two errors match under
// errors.Is when their codes are equal, so callers compare against the
// sentinels below.
type Error struct {
	Code    Code
	Message string
	Hint    string
}

var (
	// ErrMalformedInput is returned for short or inconsistent ELF headers.
	ErrMalformedInput = &Error{Code: ElfMalformed}
	// ErrUnknownArchitecture is returned when a name or header matches no registry entry.
	ErrUnknownArchitecture = &Error{Code: ArchUnknown}
	// ErrMissingElfData is returned when detection is requested without ELF bytes.
	ErrMissingElfData = &Error{Code: ArchMissingElf}
	// ErrUnsupportedRuntimeFeature is returned when the runtime lacks a needed capability.
	ErrUnsupportedRuntimeFeature = &Error{Code: GenUnsupportedFeature}
	// ErrUnknownRuntime is returned for unrecognized runtime identifiers.
	ErrUnknownRuntime = &Error{Code: GenUnknownRuntime}
	// ErrInvalidOption is returned for out-of-range option values.
	ErrInvalidOption = &Error{Code: OptInvalid}
)

// New builds a coded error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithHint returns a copy of e carrying an operator-facing remedy.
func (e *Error) WithHint(hint string) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Hint = hint
	return &cp
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = e.Code.Title()
	}
	return fmt.Sprintf("%s %s", e.Code.ID(), msg)
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil || e == nil {
		return false
	}
	return e.Code == t.Code
}

// CodeOf extracts the code from the first *Error in err's chain.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Code
	}
	return UnknownCode
}

// HintOf extracts the hint from the first *Error in err's chain.
func HintOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Hint
	}
	return ""
}
