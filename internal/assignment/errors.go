package assignment

import "errors"

// Kind classifies a business-rule violation. The HTTP layer maps each kind
// to a status code; the service only ever signals the kind.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindBadRequest
	KindConflict
	KindNotAcceptable
)

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func notFound(msg string) error      { return &Error{Kind: KindNotFound, Msg: msg} }
func forbidden(msg string) error     { return &Error{Kind: KindForbidden, Msg: msg} }
func badRequest(msg string) error    { return &Error{Kind: KindBadRequest, Msg: msg} }
func conflict(msg string) error      { return &Error{Kind: KindConflict, Msg: msg} }
func notAcceptable(msg string) error { return &Error{Kind: KindNotAcceptable, Msg: msg} }

// KindOf extracts the kind from an error chain, KindUnknown for anything
// that is not a domain error (storage faults and the like).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Store-level sentinels. The service translates these into domain errors
// at the point where it knows what the caller was doing.
var (
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrResponseNotFound   = errors.New("response not found")
)
