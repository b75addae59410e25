package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	apperrors "github.com/gridworks/datahub/internal/errors"
)

// tokenService implements TokenService using SHA-256 for token hashing.
type tokenService struct{}

// NewTokenService creates a TokenService using SHA-256 for token hashing.
func NewTokenService() TokenService {
	return &tokenService{}
}

// GenerateToken creates a new cryptographically secure 32-byte random token,
// base64 URL-encoded, plus its SHA-256 hash.
func (t *tokenService) GenerateToken() (string, string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate random token")
	}

	plainToken := base64.URLEncoding.EncodeToString(randomBytes)
	return plainToken, t.HashToken(plainToken), nil
}

// HashToken hashes a plain token using SHA-256, returned as hex.
func (t *tokenService) HashToken(plainToken string) string {
	hash := sha256.Sum256([]byte(plainToken))
	return hex.EncodeToString(hash[:])
}
