// ABOUTME: Typed error kinds for the calendar sync engine
// ABOUTME: Wraps underlying causes so callers can route retry and re-auth decisions
package sync

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	// KindCredentialMissing: no credential row for the user; requires re-authorization.
	KindCredentialMissing ErrorKind = "credential_missing"
	// KindCredentialExpired: credential present but unrefreshable; requires re-authorization.
	KindCredentialExpired ErrorKind = "credential_expired"
	// KindProvider: failure from the external calendar API; retryable by the caller.
	KindProvider ErrorKind = "provider"
	// KindMapping: malformed event or session at the translation boundary.
	KindMapping ErrorKind = "mapping"
	// KindPersistence: the local store rejected a read or write.
	KindPersistence ErrorKind = "persistence"
	// KindNotFound: the requested local record does not exist.
	KindNotFound ErrorKind = "not_found"
)

type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the sync error kind from err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var syncErr *Error
	if errors.As(err, &syncErr) {
		return syncErr.Kind
	}
	return ""
}
