// Package service provides the audit log signing primitives.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	auditDomain "github.com/gridworks/datahub/internal/audit/domain"
)

// AuditSigner signs and verifies audit log entries.
type AuditSigner interface {
	Sign(secret []byte, log *auditDomain.AuditLog) ([]byte, error)
	Verify(secret []byte, log *auditDomain.AuditLog) error
}

type auditSigner struct{}

// NewAuditSigner creates an HMAC-based audit log signer using HKDF-SHA256
// for key derivation and HMAC-SHA256 for signature generation.
func NewAuditSigner() AuditSigner {
	return &auditSigner{}
}

// deriveSigningKey uses HKDF-SHA256 to derive a 32-byte signing key from the
// root secret. The info string is versioned so the derivation can change
// without invalidating historical signatures.
func (a *auditSigner) deriveSigningKey(secret []byte) ([]byte, error) {
	info := []byte("audit-log-signing-v1")
	hash := sha256.New
	hkdf := hkdf.New(hash, secret, nil, info)

	signingKey := make([]byte, 32)
	if _, err := io.ReadFull(hkdf, signingKey); err != nil {
		return nil, err
	}

	return signingKey, nil
}

// canonicalizeLog converts an audit log to its canonical byte representation.
// Format: request_id || actor || event_type || acl_key || metadata || created_at.
// Variable-length fields are length-prefixed to prevent ambiguity.
func (a *auditSigner) canonicalizeLog(log *auditDomain.AuditLog) ([]byte, error) {
	buf := make([]byte, 0, 1024)

	buf = append(buf, log.RequestID[:]...)

	buf = appendLengthPrefixed(buf, []byte(log.Actor.String()))
	buf = appendLengthPrefixed(buf, []byte(log.EventType))
	buf = appendLengthPrefixed(buf, []byte(log.AclKey))

	if log.Metadata != nil {
		metadataBytes, err := json.Marshal(log.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		buf = appendLengthPrefixed(buf, metadataBytes)
	} else {
		buf = appendLengthPrefixed(buf, nil)
	}

	timeBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(timeBytes, uint64(log.CreatedAt.UnixNano()))
	buf = append(buf, timeBytes...)

	return buf, nil
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	dataLen := len(data)
	if dataLen > 0xFFFFFFFF {
		panic("data length exceeds uint32 max")
	}
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(dataLen))
	buf = append(buf, length...)
	buf = append(buf, data...)
	return buf
}

// Sign generates the HMAC-SHA256 signature for the audit log.
func (a *auditSigner) Sign(secret []byte, log *auditDomain.AuditLog) ([]byte, error) {
	signingKey, err := a.deriveSigningKey(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}
	defer zero(signingKey)

	canonical, err := a.canonicalizeLog(log)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize log: %w", err)
	}

	mac := hmac.New(sha256.New, signingKey)
	mac.Write(canonical)
	return mac.Sum(nil), nil
}

// Verify checks if the audit log signature is valid. Returns nil if valid,
// ErrSignatureInvalid if tampered.
func (a *auditSigner) Verify(secret []byte, log *auditDomain.AuditLog) error {
	expectedSig, err := a.Sign(secret, log)
	if err != nil {
		return fmt.Errorf("failed to compute expected signature: %w", err)
	}

	if !hmac.Equal(log.Signature, expectedSig) {
		return auditDomain.ErrSignatureInvalid
	}

	return nil
}

// zero overwrites key material in memory after use.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
