package authz

import (
	"strings"

	"github.com/golang-jwt/jwt/v5" // HS256 verification of identity provider tokens
	"github.com/google/uuid"       // subject claims must be user UUIDs
)

// DefaultAudience is the audience claim stamped on user access tokens by the
// identity provider.
const DefaultAudience = "authenticated"

// VerifiedClaims is the claim set of a bearer token that passed signature,
// algorithm, audience and expiry checks. Its fields are unexported so that
// only Resolver.Verify can produce a non-zero value.
type VerifiedClaims struct {
	subject string
}

// Subject returns the verified user id.
func (c VerifiedClaims) Subject() string { return c.subject }

// Resolver turns a raw Authorization header into a Principal. It is safe for
// concurrent use; its configuration is fixed at construction.
type Resolver struct {
	secret   []byte
	audience string
	parser   *jwt.Parser
}

// NewResolver returns a resolver verifying HS256 tokens signed with secret.
// An empty audience falls back to DefaultAudience.
func NewResolver(secret, audience string) *Resolver {
	if audience == "" {
		audience = DefaultAudience
	}
	return &Resolver{
		secret:   []byte(secret),
		audience: audience,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
		),
	}
}

// Resolve maps a credential to a principal. Anything that does not verify
// resolves to Anonymous.
func (r *Resolver) Resolve(credential string) Principal {
	claims, ok := r.Verify(credential)
	if !ok {
		return Anonymous()
	}
	return User(claims.subject)
}

// Verify checks the bearer credential and returns its claims. ok is false for
// a missing, malformed, expired, wrongly signed or wrong-audience token, and
// for a token whose subject is not a UUID.
func (r *Resolver) Verify(credential string) (VerifiedClaims, bool) {
	raw, ok := bearerToken(credential)
	if !ok || len(r.secret) == 0 {
		return VerifiedClaims{}, false
	}

	var rc jwt.RegisteredClaims
	tok, err := r.parser.ParseWithClaims(raw, &rc, func(t *jwt.Token) (interface{}, error) {
		// WithValidMethods already pins HS256; keep the type check as a second
		// guard against a key being handed to a non-HMAC method.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return r.secret, nil
	})
	if err != nil || !tok.Valid {
		return VerifiedClaims{}, false
	}

	sub, err := uuid.Parse(rc.Subject)
	if err != nil {
		return VerifiedClaims{}, false
	}
	return VerifiedClaims{subject: sub.String()}, true
}

// bearerToken extracts the token from "Bearer <jwt>". The scheme is matched
// case-insensitively.
func bearerToken(credential string) (string, bool) {
	credential = strings.TrimSpace(credential)
	const prefix = "bearer "
	if len(credential) <= len(prefix) || !strings.EqualFold(credential[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(credential[len(prefix):])
	return raw, raw != ""
}
