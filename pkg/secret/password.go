package secret

import (
	"errors"
	"sync"
)

var (
	ErrPasswordCleared = errors.New("secret: password has been cleared")
)

// Passwords unlock protected key material. A password is
// held only for the duration of a single pack or unpack
// call and is never logged.
type Password interface {
	String() (string, error)
	Bytes() ([]byte, error)
	Empty() bool
	Clear()
}

// ClearPassword is a clear text password held in memory
// until Clear is called.
type ClearPassword struct {
	mu       sync.Mutex
	password []byte
	cleared  bool
}

// Creates a new clear text password stored in memory. The
// password takes ownership of the provided slice.
func NewClearPassword(password []byte) Password {
	return &ClearPassword{password: password}
}

// Creates a new clear text password stored in memory from a string
func NewClearPasswordFromString(password string) Password {
	return &ClearPassword{password: []byte(password)}
}

// Returns the password as a string
func (p *ClearPassword) String() (string, error) {
	b, err := p.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Returns the password as bytes
func (p *ClearPassword) Bytes() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cleared {
		return nil, ErrPasswordCleared
	}
	return p.password, nil
}

// Returns true when the password is zero length or cleared
func (p *ClearPassword) Empty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cleared || len(p.password) == 0
}

// Zeroes the password bytes. Subsequent calls to Bytes
// and String return ErrPasswordCleared.
func (p *ClearPassword) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.password {
		p.password[i] = 0
	}
	p.password = nil
	p.cleared = true
}

// Redacts the password when formatted with %#v
func (p *ClearPassword) GoString() string {
	return "secret.ClearPassword{****}"
}

// Returns true if both passwords hold the same bytes
func Equal(a, b Password) bool {
	if a == nil || b == nil {
		return false
	}
	ab, err := a.Bytes()
	if err != nil {
		return false
	}
	bb, err := b.Bytes()
	if err != nil {
		return false
	}
	return subtleEqual(ab, bb)
}
