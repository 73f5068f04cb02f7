package domain

import (
	"time"

	"github.com/google/uuid"
)

// ClientStatus represents the state of a collaborator API client.
type ClientStatus string

const (
	ClientStatusActive    ClientStatus = "ACTIVE"
	ClientStatusSuspended ClientStatus = "SUSPENDED"
)

// APIClient is a registered off-chain collaborator (orchestrator, payment
// watcher, indexer) that calls the mutation API with HMAC-signed requests
// and the query API with a JWT.
type APIClient struct {
	ID           uuid.UUID    `json:"id"`
	Username     string       `json:"username"`
	PasswordHash string       `json:"-"` // Argon2id, never exposed
	ClientName   string       `json:"client_name"`
	AccessKey    string       `json:"access_key"`
	SecretKeyEnc string       `json:"-"` // AES-encrypted, never exposed
	Status       ClientStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsActive returns true if the client may call the API.
func (c *APIClient) IsActive() bool {
	return c.Status == ClientStatusActive
}
