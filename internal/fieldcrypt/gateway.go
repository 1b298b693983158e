// Package fieldcrypt encrypts the sensitive free-text columns of a journal
// entry before they reach storage and decrypts them on the way back.
//
// Ciphertexts are printable tokens:
//
//	enc1-<base64(nonce[24] || secretbox(plaintext))>
//
// secretbox is XSalsa20-Poly1305, so any bit flip, truncation or use of the
// wrong key is detected on Decrypt.
package fieldcrypt

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// KeySize is the length in bytes of the process-wide key.
	KeySize = 32

	nonceSize = 24
	prefix    = "enc1-"
)

var (
	// ErrInvalidKey is returned by ParseKey for key material that does not
	// decode to exactly KeySize bytes.
	ErrInvalidKey = errors.New("fieldcrypt: key must be base64 encoding of 32 bytes")

	errMalformed   = errors.New("malformed ciphertext")
	errAuth        = errors.New("authentication failed")
	errRandomness  = errors.New("nonce generation failed")
	ciphertextLike = regexp.MustCompile(`^[A-Za-z0-9+/=-]{44,}$`)
)

// Error is returned for any encryption or decryption failure. It never carries
// the input value.
type Error struct {
	Op    string // "encrypt" or "decrypt"
	Field string // set by callers that know which column failed
	Err   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("fieldcrypt: %s %s: %v", e.Op, e.Field, e.Err)
	}
	return fmt.Sprintf("fieldcrypt: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// WithField returns a copy of err tagged with field when err is an *Error,
// and err unchanged otherwise.
func WithField(err error, field string) error {
	var fe *Error
	if errors.As(err, &fe) {
		cp := *fe
		cp.Field = field
		return &cp
	}
	return err
}

// ParseKey decodes key material given as URL-safe or standard base64, with or
// without padding.
func ParseKey(s string) ([KeySize]byte, error) {
	var key [KeySize]byte
	s = strings.TrimSpace(s)
	for _, enc := range []*base64.Encoding{
		base64.URLEncoding, base64.StdEncoding,
		base64.RawURLEncoding, base64.RawStdEncoding,
	} {
		b, err := enc.DecodeString(s)
		if err == nil && len(b) == KeySize {
			copy(key[:], b)
			return key, nil
		}
	}
	return key, ErrInvalidKey
}

// GenerateKey reads fresh key material from r (crypto/rand when nil) and
// returns it in the URL-safe base64 form ParseKey accepts.
func GenerateKey(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	var key [KeySize]byte
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return "", fmt.Errorf("fieldcrypt: generate key: %w", err)
	}
	return base64.URLEncoding.EncodeToString(key[:]), nil
}

// Gateway holds the key. It is immutable after construction and safe for
// concurrent use.
type Gateway struct {
	key  [KeySize]byte
	rand io.Reader
}

// New returns a gateway sealing with key.
func New(key [KeySize]byte) *Gateway {
	return &Gateway{key: key, rand: rand.Reader}
}

// NewFromString parses key material with ParseKey and returns a gateway.
func NewFromString(s string) (*Gateway, error) {
	key, err := ParseKey(s)
	if err != nil {
		return nil, err
	}
	return New(key), nil
}

// Encrypt seals plaintext. The empty string maps to the empty string.
func (g *Gateway) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(g.rand, nonce[:]); err != nil {
		return "", &Error{Op: "encrypt", Err: errRandomness}
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &g.key)
	return prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Plaintext, tampered or foreign
// values fail with *Error.
func (g *Gateway) Decrypt(blob string) (string, error) {
	if blob == "" {
		return "", nil
	}
	if !strings.HasPrefix(blob, prefix) {
		return "", &Error{Op: "decrypt", Err: errMalformed}
	}
	raw, err := base64.StdEncoding.DecodeString(blob[len(prefix):])
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", &Error{Op: "decrypt", Err: errMalformed}
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	out, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &g.key)
	if !ok {
		return "", &Error{Op: "decrypt", Err: errAuth}
	}
	return string(out), nil
}

// LooksEncrypted reports whether s has the shape of a stored ciphertext. It
// is a cheap format check, not a proof of encryption.
func LooksEncrypted(s string) bool {
	return ciphertextLike.MatchString(s)
}
