package utils // package utils provides helpers for minting access tokens outside the identity provider

import (
	"time" // expiry arithmetic

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed JWT access token along with its expiry.
// Tokens minted here have the same shape as those issued by the identity
// provider, so local tooling and tests can exercise the real verification
// path instead of a stub.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenOptions customises a minted token. The zero value produces a normal
// user token signed with HS256.
type TokenOptions struct {
	Audience string            // "aud" claim; empty omits it
	Method   jwt.SigningMethod // defaults to HS256
	IssuedAt time.Time         // defaults to now
	NoExpiry bool              // omit "exp" entirely
}

// NewAccessToken builds and signs a JWT for userID, valid for ttl. A negative
// ttl yields an already expired token.
func NewAccessToken(secret, userID string, ttl time.Duration, opts TokenOptions) (AccessToken, error) {
	now := opts.IssuedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	exp := now.Add(ttl)

	claims := jwt.MapClaims{
		"sub":  userID,
		"iat":  now.Unix(),
		"role": "authenticated",
	}
	if !opts.NoExpiry {
		claims["exp"] = exp.Unix()
	}
	if opts.Audience != "" {
		claims["aud"] = opts.Audience
	}

	method := opts.Method
	if method == nil {
		method = jwt.SigningMethodHS256
	}
	t := jwt.NewWithClaims(method, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	if opts.NoExpiry {
		exp = time.Time{}
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// Bearer returns the token formatted as an Authorization header value.
func (t AccessToken) Bearer() string { return "Bearer " + t.Token }
