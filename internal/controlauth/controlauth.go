// Package controlauth implements the optional authentication gate for the
// control socket (spec §4.7, "added"). It is a JWT bearer check plus an
// optional TOTP second factor, following the security discipline in
// api/internal/auth/jwt.go (explicit HMAC signing-method check to reject
// algorithm-substitution attacks) and api/internal/handlers/security.go
// (totp.Validate for a six-digit code).
package controlauth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
)

// Gate validates AUTH:<token> commands and, when a TOTP secret is
// configured, the six-digit codes appended to destructive commands.
type Gate struct {
	signingKey []byte
	totpSecret string
}

// NewGate constructs a gate. An empty signingKey disables authentication
// entirely — callers should check Required() before gating commands.
func NewGate(signingKey, totpSecret string) *Gate {
	return &Gate{signingKey: []byte(signingKey), totpSecret: totpSecret}
}

// Required reports whether the control socket is configured to require
// authentication at all.
func (g *Gate) Required() bool {
	return len(g.signingKey) > 0
}

// RequiresTOTP reports whether destructive commands additionally require a
// TOTP code.
func (g *Gate) RequiresTOTP() bool {
	return g.totpSecret != ""
}

// ValidateToken parses and verifies a bearer token against the configured
// signing key, rejecting anything not signed with an HMAC method (an
// unauthenticated "none" algorithm or an asymmetric-algorithm substitution
// would otherwise bypass the check entirely).
func (g *Gate) ValidateToken(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.signingKey, nil
	})
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("token not valid")
	}
	return nil
}

// ValidateTOTP checks a six-digit code against the configured secret.
func (g *Gate) ValidateTOTP(code string) bool {
	if g.totpSecret == "" {
		return true
	}
	return totp.Validate(strings.TrimSpace(code), g.totpSecret)
}

// SplitCommandCode splits a command of the form "STOP:123456" into the bare
// command and the trailing code, when one is present.
func SplitCommandCode(command string) (bare, code string) {
	idx := strings.LastIndex(command, ":")
	if idx < 0 {
		return command, ""
	}
	candidate := command[idx+1:]
	if len(candidate) != 6 {
		return command, ""
	}
	for _, r := range candidate {
		if r < '0' || r > '9' {
			return command, ""
		}
	}
	return command[:idx], candidate
}
