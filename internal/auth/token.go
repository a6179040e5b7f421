package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidToken is returned for malformed, forged, or expired tokens.
var ErrInvalidToken = errors.New("invalid token")

// Tokens issues and verifies HMAC-signed bearer tokens. This is the
// thin identity-provider adapter the engine trusts: it resolves a
// token to an owner identifier and nothing more.
type Tokens struct {
	key []byte
	ttl time.Duration
}

// New creates a token authority with the given signing key and TTL.
func New(key string, ttl time.Duration) *Tokens {
	return &Tokens{key: []byte(key), ttl: ttl}
}

// Issue creates a signed token for owner.
func (t *Tokens) Issue(owner string) string {
	expiry := time.Now().Add(t.ttl).Unix()
	payload := fmt.Sprintf("%s|%d", owner, expiry)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return encoded + "." + t.sign(encoded)
}

// Verify checks a token's signature and expiry and returns the owner.
func (t *Tokens) Verify(token string) (string, error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok {
		return "", ErrInvalidToken
	}
	if !hmac.Equal([]byte(t.sign(encoded)), []byte(sig)) {
		return "", ErrInvalidToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidToken
	}
	owner, expStr, ok := strings.Cut(string(raw), "|")
	if !ok || owner == "" {
		return "", ErrInvalidToken
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil || time.Now().Unix() > exp {
		return "", ErrInvalidToken
	}
	return owner, nil
}

func (t *Tokens) sign(payload string) string {
	mac := hmac.New(sha256.New, t.key)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
