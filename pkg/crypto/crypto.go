// Package crypto collects the cryptographic primitives used at the system's
// trust boundaries: unsubscribe tokens, short codes, webhook/API-key
// comparisons, and admin password hashing.
package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const shortCodeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomToken returns an unguessable hex token with n bytes of entropy,
// suitable for unsubscribe tokens and session identifiers.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("crypto: generate random token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ShortCode returns an 8-character alphanumeric code drawn from a
// cryptographic RNG, for use as a ShortUrl.short_code.
func ShortCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("crypto: generate short code: %w", err)
	}
	out := make([]byte, 8)
	for i, b := range buf {
		out[i] = shortCodeAlphabet[int(b)%len(shortCodeAlphabet)]
	}
	return string(out), nil
}

// ComputeHMAC256 returns the hex-encoded HMAC-SHA256 of toSign under secretKey.
func ComputeHMAC256(toSign []byte, secretKey string) string {
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write(toSign)
	return hex.EncodeToString(h.Sum(nil))
}

// ConstantTimeEqual compares two secrets without leaking timing information,
// used for bearer-API-key and webhook-signature comparisons.
func ConstantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		// still run a comparison so callers can't distinguish length
		// mismatches from content mismatches by timing.
		subtle.ConstantTimeCompare([]byte(a), []byte(a))
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// DecodeBase64Secret decodes a base64-encoded shared secret such as a
// webhook signing key.
func DecodeBase64Secret(encoded string) ([]byte, error) {
	// Svix-style secrets carry a "whsec_" prefix ahead of the base64 body.
	const prefix = "whsec_"
	if len(encoded) > len(prefix) && encoded[:len(prefix)] == prefix {
		encoded = encoded[len(prefix):]
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("crypto: decode base64 secret: %w", err)
	}
	return decoded, nil
}

// HashPassword hashes an admin password for storage.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("crypto: hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPasswordHash reports whether password matches hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
