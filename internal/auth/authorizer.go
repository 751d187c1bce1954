// Package auth decides who may open an SSH session.
package auth

import (
	"golang.org/x/crypto/ssh"

	"pkt.systems/pslog"
)

// Authorizer combines an optional key allow-list with an optional TOTP secret.
type Authorizer struct {
	keys       *KeyStore
	totpSecret string
	log        pslog.Logger
}

// NewAuthorizer builds an Authorizer. An empty keysPath accepts any public
// key; an empty totpSecret disables the second factor.
func NewAuthorizer(keysPath, totpSecret string, logger pslog.Logger) (*Authorizer, error) {
	a := &Authorizer{totpSecret: totpSecret, log: logger}
	if keysPath != "" {
		keys, err := NewKeyStore(keysPath, logger)
		if err != nil {
			return nil, err
		}
		a.keys = keys
	}
	return a, nil
}

// AllowKey reports whether key may log in.
func (a *Authorizer) AllowKey(key ssh.PublicKey) bool {
	if a == nil || a.keys == nil {
		return true
	}
	ok, err := a.keys.Has(key)
	if err != nil {
		if a.log != nil {
			a.log.Warn("auth key check failed", "err", err)
		}
		return false
	}
	return ok
}

// RequiresTOTP reports whether a keyboard-interactive code is needed.
func (a *Authorizer) RequiresTOTP() bool {
	return a != nil && a.totpSecret != ""
}

// VerifyTOTP validates code against the configured secret.
func (a *Authorizer) VerifyTOTP(code string) error {
	if !a.RequiresTOTP() {
		return nil
	}
	return ValidateTOTP(a.totpSecret, code)
}
