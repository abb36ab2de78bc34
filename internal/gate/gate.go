// Package gate implements the authorization check required before an
// activity's solution may be revealed.
package gate

import (
	"crypto/sha256"
	"crypto/subtle"
)

// AuthorizationError reports a rejected solution-reveal request. It
// never affects attempt or hint counters.
type AuthorizationError struct {
	Cause string
}

func (e *AuthorizationError) Error() string {
	return "solution reveal not authorized: " + e.Cause
}

// Gate authorizes solution reveals.
type Gate interface {
	// Authorize checks the supplied secret. A nil return grants the
	// reveal; a rejection is an *AuthorizationError.
	Authorize(secret string) error
}

// PINGate checks a shared parental PIN. Only a digest of the PIN is
// kept in memory.
type PINGate struct {
	digest [sha256.Size]byte
}

// NewPINGate creates a gate guarding reveals with the given PIN.
func NewPINGate(pin string) *PINGate {
	return &PINGate{digest: sha256.Sum256([]byte(pin))}
}

func (g *PINGate) Authorize(secret string) error {
	if secret == "" {
		return &AuthorizationError{Cause: "empty pin"}
	}
	sum := sha256.Sum256([]byte(secret))
	if subtle.ConstantTimeCompare(sum[:], g.digest[:]) != 1 {
		return &AuthorizationError{Cause: "wrong pin"}
	}
	return nil
}

// Open is a gate that authorizes every request; useful for local play
// without a configured PIN.
type Open struct{}

func (Open) Authorize(string) error { return nil }
