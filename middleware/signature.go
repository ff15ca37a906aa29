package middleware

import (
	"encoding/base64"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Headers carrying the identity the gateway attaches to forwarded requests
const (
	UserContextHeader          = "X-User-Context"
	UserContextSignatureHeader = "X-User-Context-Signature"
)

var errMissingSignature = errors.New("missing user context signature")

// SignUserContext returns the base64 HMAC-SHA256 of the header value
func SignUserContext(secret []byte, value string) (string, error) {
	sig, err := jwt.SigningMethodHS256.Sign(value, secret)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifyUserContext checks signature against value in constant time
func VerifyUserContext(secret []byte, value, signature string) error {
	if signature == "" {
		return errMissingSignature
	}
	sig, err := base64.StdEncoding.Strict().DecodeString(signature)
	if err != nil {
		return err
	}
	return jwt.SigningMethodHS256.Verify(value, sig, secret)
}
