package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// tokenClaims is the signed payload of a session token.
type tokenClaims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Exp   int64  `json:"exp"` // unix seconds
}

var (
	errTokenFormat  = errors.New("malformed token")
	errTokenSig     = errors.New("invalid token signature")
	errTokenExpired = errors.New("token expired")
)

// mintToken signs claims with the service key: base64url(json).base64url(hmac).
func mintToken(key []byte, claims tokenClaims) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encode claims: %w", err)
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + sign(key, body), nil
}

// parseToken verifies the signature and expiry and returns the claims.
func parseToken(key []byte, token string, now time.Time) (tokenClaims, error) {
	body, sig, ok := strings.Cut(token, ".")
	if !ok || body == "" || sig == "" {
		return tokenClaims{}, errTokenFormat
	}
	if !hmac.Equal([]byte(sign(key, body)), []byte(sig)) {
		return tokenClaims{}, errTokenSig
	}

	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return tokenClaims{}, errTokenFormat
	}
	var claims tokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return tokenClaims{}, errTokenFormat
	}
	if claims.UID == "" {
		return tokenClaims{}, errTokenFormat
	}
	if now.Unix() >= claims.Exp {
		return tokenClaims{}, errTokenExpired
	}
	return claims, nil
}

func sign(key []byte, body string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
