// Package identity verifies bearer credentials issued by the external
// identity provider and yields the verified principal email. The provider's
// verification key ships inside a base64-encoded service-account JSON
// credential.
package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidToken = fmt.Errorf("invalid or expired token")
	ErrNoEmail      = fmt.Errorf("token carries no email claim")
)

// Verifier validates a bearer token and returns the principal's email.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// serviceAccount is the decoded shape of the provider credential.
type serviceAccount struct {
	ProjectID string `json:"project_id"`
	PublicKey string `json:"public_key"` // PEM
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenVerifier checks RS256 signatures against the provider's public key
// and enforces issuer and expiry.
type TokenVerifier struct {
	key    *rsa.PublicKey
	issuer string
}

// NewTokenVerifier parses a base64-encoded service-account JSON credential.
func NewTokenVerifier(credentialsB64 string) (*TokenVerifier, error) {
	raw, err := base64.StdEncoding.DecodeString(credentialsB64)
	if err != nil {
		return nil, fmt.Errorf("decode identity credentials: %w", err)
	}

	var sa serviceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("parse identity credentials: %w", err)
	}
	if sa.ProjectID == "" || sa.PublicKey == "" {
		return nil, fmt.Errorf("identity credentials missing project_id or public_key")
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(sa.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("parse identity public key: %w", err)
	}

	return &TokenVerifier{key: key, issuer: sa.ProjectID}, nil
}

func (v *TokenVerifier) Verify(_ context.Context, tokenString string) (string, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return v.key, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !c.VerifyIssuer(v.issuer, true) {
		return "", fmt.Errorf("%w: wrong issuer", ErrInvalidToken)
	}
	if c.Email == "" {
		return "", ErrNoEmail
	}
	return c.Email, nil
}

// StaticVerifier maps fixed tokens to emails. Test use only.
type StaticVerifier map[string]string

func (v StaticVerifier) Verify(_ context.Context, token string) (string, error) {
	email, ok := v[token]
	if !ok {
		return "", ErrInvalidToken
	}
	return email, nil
}
