package service

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"ephemeral-account-service/internal/core/ports"

	"github.com/google/uuid"
)

// AuthorizationMessage builds the canonical byte string a capability proof
// covers. Binding the account ID and the destination into the message means
// a proof captured for one sweep cannot be replayed against another account
// or redirected to a different destination.
// Format: accountID|principal|destination
func AuthorizationMessage(accountID uuid.UUID, principal string, destination string) []byte {
	return []byte(fmt.Sprintf("%s|%s|%s", accountID, principal, destination))
}

// HMACAuthorizer implements ports.Authorizer with an HMAC-SHA256 capability
// MAC under a key shared with the sweep operator. Proofs are lowercase hex.
type HMACAuthorizer struct {
	key []byte
}

// NewHMACAuthorizer creates an HMACAuthorizer from a hex-encoded key.
func NewHMACAuthorizer(hexKey string) (*HMACAuthorizer, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode authorizer key: %w", err)
	}
	if len(key) < 32 {
		return nil, fmt.Errorf("authorizer key must be at least 32 bytes, got %d", len(key))
	}
	return &HMACAuthorizer{key: key}, nil
}

// Verify checks proof against HMAC-SHA256(key, canonical message) in
// constant time.
func (a *HMACAuthorizer) Verify(accountID uuid.UUID, principal string, destination string, proof string) error {
	mac := hmac.New(sha256.New, a.key)
	mac.Write(AuthorizationMessage(accountID, principal, destination))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(proof)) {
		return fmt.Errorf("capability proof mismatch")
	}
	return nil
}

// Sign produces a proof for the canonical message. Exposed for operator
// tooling and tests.
func (a *HMACAuthorizer) Sign(accountID uuid.UUID, principal string, destination string) string {
	mac := hmac.New(sha256.New, a.key)
	mac.Write(AuthorizationMessage(accountID, principal, destination))
	return hex.EncodeToString(mac.Sum(nil))
}

// Ed25519Authorizer implements ports.Authorizer by verifying an Ed25519
// signature over the canonical message against a fixed operator public key.
type Ed25519Authorizer struct {
	pub ed25519.PublicKey
}

// NewEd25519Authorizer creates an Ed25519Authorizer from a hex-encoded
// public key.
func NewEd25519Authorizer(hexPub string) (*Ed25519Authorizer, error) {
	pub, err := hex.DecodeString(hexPub)
	if err != nil {
		return nil, fmt.Errorf("decode authorizer public key: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("authorizer public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}
	return &Ed25519Authorizer{pub: ed25519.PublicKey(pub)}, nil
}

// Verify checks a hex-encoded Ed25519 signature over the canonical message.
func (a *Ed25519Authorizer) Verify(accountID uuid.UUID, principal string, destination string, proof string) error {
	sig, err := hex.DecodeString(proof)
	if err != nil {
		return fmt.Errorf("decode proof: %w", err)
	}
	if !ed25519.Verify(a.pub, AuthorizationMessage(accountID, principal, destination), sig) {
		return fmt.Errorf("capability signature invalid")
	}
	return nil
}

// NewAuthorizer selects the configured scheme. Supported: "hmac", "ed25519".
func NewAuthorizer(scheme string, keyMaterial string) (ports.Authorizer, error) {
	switch scheme {
	case "hmac":
		return NewHMACAuthorizer(keyMaterial)
	case "ed25519":
		return NewEd25519Authorizer(keyMaterial)
	default:
		return nil, fmt.Errorf("unknown authorizer scheme %q", scheme)
	}
}
