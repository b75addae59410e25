// Package service provides credential generation and hashing for service
// accounts and their tokens.
package service

// SecretService defines operations for account secret generation and
// validation. Implementations must use cryptographically secure random
// generation and a memory-hard hash.
type SecretService interface {
	// GenerateSecret creates a new random secret. Returns both the plain
	// text secret (shown once at account creation) and the hash to store.
	GenerateSecret() (plainSecret string, hashedSecret string, err error)

	// HashSecret hashes a plain text secret.
	HashSecret(plainSecret string) (hashedSecret string, err error)

	// CompareSecret compares a plain text secret against a stored hash in
	// constant time.
	CompareSecret(plainSecret string, hashedSecret string) bool
}

// TokenService defines operations for bearer token generation and hashing.
// Tokens are short-lived, so a fast hash is used for lookup.
type TokenService interface {
	// GenerateToken creates a new random token. Returns both the plain token
	// (shown once at issuance) and the hash to store.
	GenerateToken() (plainToken string, tokenHash string, err error)

	// HashToken hashes a plain token with SHA-256 for lookup.
	HashToken(plainToken string) string
}
