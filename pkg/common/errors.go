package common

import (
	"errors"
	"fmt"
)

// Error kinds returned by the core operations. Specific errors wrap
// one of these so callers can classify with errors.Is.
var (
	ErrInvalidParameter     = errors.New("pki-tool: invalid parameter")
	ErrMalformedInput       = errors.New("pki-tool: malformed input")
	ErrAuthenticationFailed = errors.New("pki-tool: authentication failed")

	ErrPasswordsDontMatch = fmt.Errorf("%w: passwords don't match", ErrInvalidParameter)
	ErrPasswordRequired   = fmt.Errorf("%w: password required", ErrInvalidParameter)
)

// Returns the error kind sentinel err belongs to, or nil when
// err is not one of the core error kinds.
func Kind(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAuthenticationFailed):
		return ErrAuthenticationFailed
	case errors.Is(err, ErrMalformedInput):
		return ErrMalformedInput
	case errors.Is(err, ErrInvalidParameter):
		return ErrInvalidParameter
	}
	return nil
}
