// ABOUTME: Session pointer persisted under "currentUser", encoded as an HS256 JWT
// ABOUTME: The identity travels in the registered "sub" claim; jti makes each issue unique

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Pointer errors
var (
	ErrMalformedPointer = errors.New("malformed session pointer")
	ErrExpiredPointer   = errors.New("session pointer expired")
)

// PointerSigner issues and reads session pointers.
type PointerSigner struct {
	secret []byte
	parser *jwt.Parser
	now    func() time.Time
}

// NewPointerSigner creates a signer keyed with the given HMAC secret.
func NewPointerSigner(secret []byte) *PointerSigner {
	return &PointerSigner{
		secret: secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuedAt(),
		),
		now: time.Now,
	}
}

// Issue returns a pointer for identity. A zero ttl never expires.
func (p *PointerSigner) Issue(identity string, ttl time.Duration) (string, error) {
	now := p.now()
	claims := jwt.RegisteredClaims{
		Subject:  identity,
		ID:       uuid.NewString(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// Identity returns the identity a pointer names.
func (p *PointerSigner) Identity(pointer string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := p.parser.ParseWithClaims(pointer, &claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrExpiredPointer
	case err != nil:
		return "", fmt.Errorf("%w: %v", ErrMalformedPointer, err)
	case claims.Subject == "":
		return "", fmt.Errorf("%w: no subject", ErrMalformedPointer)
	}
	return claims.Subject, nil
}
