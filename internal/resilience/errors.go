package resilience

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Kind tags an error with the user-facing category the API and CLI render.
type Kind string

const (
	KindNone            Kind = ""
	KindCredential      Kind = "configuration"
	KindNoResults       Kind = "no_results"
	KindMissingBusiness Kind = "missing_business"
	KindTransient       Kind = "transient"
)

// ErrNoResults marks a search that returned zero places. Search itself treats
// this as an empty success; only the presentation side decides to show it.
var ErrNoResults = eris.New("no results")

// CredentialError reports that the provider rejected our credentials.
// It is never retried.
type CredentialError struct {
	Op  string
	Err error
}

func (e *CredentialError) Error() string {
	return e.Op + ": access denied: " + e.Err.Error()
}

func (e *CredentialError) Unwrap() error { return e.Err }

// Kind implements Kinded.
func (e *CredentialError) Kind() Kind { return KindCredential }

// TransientFetchError wraps any other failure talking to the provider.
type TransientFetchError struct {
	Op  string
	Err error
}

func (e *TransientFetchError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// Kind implements Kinded.
func (e *TransientFetchError) Kind() Kind { return KindTransient }

// Kinded is implemented by errors that carry their own Kind.
type Kinded interface {
	Kind() Kind
}

// Classify returns the Kind of the first Kinded error in err's chain.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrNoResults) {
		return KindNoResults
	}
	var k Kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindTransient
}

// IsCredential reports whether err is (or wraps) a CredentialError.
func IsCredential(err error) bool {
	var ce *CredentialError
	return errors.As(err, &ce)
}
