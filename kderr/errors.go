// Package kderr defines the typed error taxonomy surfaced by every layer
// of the KDBX core: header parsing, key derivation, block framing, the
// inner-stream cipher, XML parsing and the orchestrator all fail through
// this single error type so callers can switch on Kind instead of
// matching error strings.
package kderr

import "fmt"

// Kind enumerates the failure taxonomy from the error handling design.
type Kind int

const (
	UnknownFileFormat Kind = iota
	UnsupportedVersion
	HeaderCorrupted
	UnsupportedCipher
	UnsupportedKDF
	UnsupportedCompression
	UnsupportedRandomStream
	UnsupportedVariantType
	CorruptVariantDict
	IntegrityFailure
	AuthFailure
	DecompressionFailed
	XMLParseFailed
	KeyFileParseFailed
	WriteFailed
	Cancelled
	LegacyUnsupported
)

var kindNames = map[Kind]string{
	UnknownFileFormat:      "UnknownFileFormat",
	UnsupportedVersion:     "UnsupportedVersion",
	HeaderCorrupted:        "HeaderCorrupted",
	UnsupportedCipher:      "UnsupportedCipher",
	UnsupportedKDF:         "UnsupportedKDF",
	UnsupportedCompression: "UnsupportedCompression",
	UnsupportedRandomStream: "UnsupportedRandomStream",
	UnsupportedVariantType: "UnsupportedVariantType",
	CorruptVariantDict:     "CorruptVariantDict",
	IntegrityFailure:       "IntegrityFailure",
	AuthFailure:            "AuthFailure",
	DecompressionFailed:    "DecompressionFailed",
	XMLParseFailed:         "XMLParseFailed",
	KeyFileParseFailed:     "KeyFileParseFailed",
	WriteFailed:            "WriteFailed",
	Cancelled:              "Cancelled",
	LegacyUnsupported:      "LegacyUnsupported",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UnknownKind"
}

// Error is the single error type returned across package boundaries.
// Its Error() text is the Kind followed by the message; Wrap uses the
// cause's own text as that message. The cause itself is reachable
// through errors.Unwrap/errors.As.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, msg: err.Error(), err: err}
}

func Wrapf(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

func (e *Error) Error() string {
	if e.msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// Is reports whether err, or the first *Error reached by unwrapping
// it, has the given Kind.
func Is(err error, kind Kind) bool {
	var ke *Error
	if e, ok := err.(*Error); ok {
		ke = e
		return ke.Kind == kind
	}
	type unwrapper interface{ Unwrap() error }
	for u, ok := err.(unwrapper); ok; u, ok = err.(unwrapper) {
		err = u.Unwrap()
		if e, ok := err.(*Error); ok {
			return e.Kind == kind
		}
	}
	return false
}
