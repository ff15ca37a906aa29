// Package tokens mints and verifies the compact HMAC-signed tokens issued by
// the auth service.
package tokens

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMissingSecret is returned when the codec is built without a key
	ErrMissingSecret = errors.New("token signing secret not configured")

	// ErrMalformedToken is returned when the token does not have three segments
	ErrMalformedToken = errors.New("malformed token")

	// ErrInvalidSignature is returned when the signature does not match
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidPayload is returned when the claims segment cannot be decoded
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrTokenExpired is returned when the token expiry is in the past
	ErrTokenExpired = errors.New("token expired")
)

type header struct {
	Typ string `json:"typ"`
	Alg string `json:"alg"`
}

// Minted is a freshly signed token together with the generated claims
type Minted struct {
	Token     string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec signs and verifies tokens with a shared HMAC-SHA256 key.
// Segments use standard padded base64.
type Codec struct {
	key    []byte
	method *jwt.SigningMethodHMAC
	now    func() time.Time
}

// Option configures a Codec
type Option func(*Codec)

// WithClock overrides the time source used for iat, exp and expiry checks
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec creates a codec for the given secret
func NewCodec(secret string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	c := &Codec{
		key:    []byte(secret),
		method: jwt.SigningMethodHS256,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Mint signs claims with a fresh jti, iat = now and exp = now + ttl
func (c *Codec) Mint(claims Claims, ttl time.Duration) (*Minted, error) {
	now := c.now()
	expiresAt := now.Add(ttl)

	claims.JTI = uuid.NewString()
	claims.IssuedAt = now.Unix()
	claims.ExpiresAt = expiresAt.Unix()

	headerJSON, err := json.Marshal(header{Typ: "JWT", Alg: c.method.Alg()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to encode claims: %w", err)
	}

	signingString := base64.StdEncoding.EncodeToString(headerJSON) + "." + base64.StdEncoding.EncodeToString(claimsJSON)
	sig, err := c.method.Sign(signingString, c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Minted{
		Token:     signingString + "." + base64.StdEncoding.EncodeToString(sig),
		JTI:       claims.JTI,
		IssuedAt:  time.Unix(claims.IssuedAt, 0),
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
	}, nil
}

// Verify checks the signature and expiry of token and returns its claims.
// It does not check the token type.
func (c *Codec) Verify(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrMalformedToken
	}

	// Strict decoding rejects non-zero trailing bits so every character of
	// the signature segment is significant.
	sig, err := base64.StdEncoding.Strict().DecodeString(parts[2])
	if err != nil {
		return nil, ErrInvalidSignature
	}
	if err := c.method.Verify(parts[0]+"."+parts[1], sig, c.key); err != nil {
		return nil, ErrInvalidSignature
	}

	payload, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	var claims *Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if claims == nil {
		return nil, ErrInvalidPayload
	}

	if claims.ExpiresAt < c.now().Unix() {
		return nil, ErrTokenExpired
	}

	return claims, nil
}
