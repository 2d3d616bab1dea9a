package vault

import (
	"crypto/subtle"

	"github.com/awnumar/memguard"
)

const redacted = "[REDACTED]"

// Secret owns sensitive bytes (master secret, derived keys, plaintext
// passwords) in a locked memguard buffer. The bytes are wiped on Destroy.
// Secret has no copy constructor and never prints its contents.
type Secret struct {
	buf *memguard.LockedBuffer
}

// NewSecret moves b into a locked buffer and wipes b.
func NewSecret(b []byte) *Secret {
	if len(b) == 0 {
		return &Secret{}
	}
	return &Secret{buf: memguard.NewBufferFromBytes(b)}
}

// NewSecretString copies s into a locked buffer. The Go string itself cannot
// be wiped, so prefer NewSecret when the caller holds a byte slice.
func NewSecretString(s string) *Secret {
	return NewSecret([]byte(s))
}

// Bytes exposes the protected bytes. The slice is only valid until Destroy.
func (s *Secret) Bytes() []byte {
	if s == nil || s.buf == nil {
		return nil
	}
	return s.buf.Bytes()
}

func (s *Secret) Len() int {
	return len(s.Bytes())
}

func (s *Secret) Empty() bool {
	return s.Len() == 0
}

// Equal compares two secrets in constant time.
func (s *Secret) Equal(other *Secret) bool {
	return subtle.ConstantTimeCompare(s.Bytes(), other.Bytes()) == 1
}

// Destroy wipes and releases the buffer. It is safe to call more than once.
func (s *Secret) Destroy() {
	if s == nil || s.buf == nil {
		return
	}
	s.buf.Destroy()
	s.buf = nil
}

func (s *Secret) String() string { return redacted }
func (s *Secret) GoString() string { return redacted }

// reveal returns a string copy for display paths that must show plaintext.
func (s *Secret) reveal() string {
	return string(s.Bytes())
}

func zero(b []byte) {
	memguard.WipeBytes(b)
}
