package actiontoken

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type claims struct {
	Token
	jwt.RegisteredClaims
}

// SignedCodec carries the same payload as Base64Codec inside an HS256 JWT, so
// a forged or edited link is rejected. Tokens carry no expiry.
type SignedCodec struct {
	secret []byte
}

// NewSignedCodec creates a codec keyed by secret.
func NewSignedCodec(secret string) *SignedCodec {
	return &SignedCodec{secret: []byte(secret)}
}

// Encode signs the token.
func (c *SignedCodec) Encode(t Token) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{Token: t})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign action token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and returns the embedded token.
func (c *SignedCodec) Decode(s string) (Token, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Token{}, ErrMalformedToken
	}

	parsed, err := jwt.ParseWithClaims(s, &claims{}, func(t *jwt.Token) (interface{}, error) {
		// Ensure token is signed using HS256
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %T", t.Method)
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	cl, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return Token{}, ErrMalformedToken
	}
	return cl.Token, validate(cl.Token)
}
