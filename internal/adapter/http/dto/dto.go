package dto

import (
	"encoding/json"
	"time"

	"ephemeral-account-service/internal/core/domain"
)

// --- Auth ---

// RegisterRequest is the client registration payload.
type RegisterRequest struct {
	Username   string `json:"username" binding:"required,min=3,max=64,safe_id"`
	Password   string `json:"password" binding:"required,min=12,max=128"`
	ClientName string `json:"client_name" binding:"required,min=1,max=128"`
}

// RegisterResponse returns the generated credentials. SecretKey is shown
// only here, never again.
type RegisterResponse struct {
	ClientID  string `json:"client_id"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse returns the JWT for the query API.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// --- Account lifecycle ---

// InitializeAccountRequest creates an escrow account. AccountID is chosen
// by the caller so that repeating the call is detectable.
type InitializeAccountRequest struct {
	AccountID        string  `json:"account_id" binding:"required,uuid"`
	Creator          string  `json:"creator" binding:"required,address"`
	RecoveryAddress  string  `json:"recovery_address" binding:"required,address"`
	SweepDestination *string `json:"sweep_destination,omitempty" binding:"omitempty,address"`
	ExpiresAt        string  `json:"expires_at" binding:"required"` // RFC3339
	Proof            string  `json:"proof" binding:"required"`
}

// ParseExpiresAt parses the RFC3339 expiry.
func (r InitializeAccountRequest) ParseExpiresAt() (time.Time, error) {
	return time.Parse(time.RFC3339, r.ExpiresAt)
}

// RecordPaymentRequest records the observed inbound payment.
type RecordPaymentRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Asset  string `json:"asset" binding:"required,address"`
}

// SweepAccountRequest authorizes moving custody to Destination.
type SweepAccountRequest struct {
	Destination string `json:"destination" binding:"required,address"`
	Proof       string `json:"proof" binding:"required"`
}

// AccountResponse is the full account projection.
type AccountResponse struct {
	AccountID        string  `json:"account_id"`
	Creator          string  `json:"creator"`
	RecoveryAddress  string  `json:"recovery_address"`
	SweepDestination *string `json:"sweep_destination,omitempty"`
	ExpiresAt        string  `json:"expires_at"`
	Status           string  `json:"status"`
	PaymentReceived  bool    `json:"payment_received"`
	PaymentAmount    *int64  `json:"payment_amount,omitempty"`
	PaymentAsset     *string `json:"payment_asset,omitempty"`
	SweptTo          *string `json:"swept_to,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

// NewAccountResponse maps a domain account to its API projection.
func NewAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:        a.ID.String(),
		Creator:          a.Creator,
		RecoveryAddress:  a.RecoveryAddress,
		SweepDestination: a.SweepDestination,
		ExpiresAt:        a.ExpiresAt.UTC().Format(time.RFC3339),
		Status:           string(a.Status),
		PaymentReceived:  a.PaymentReceived,
		PaymentAmount:    a.PaymentAmount,
		PaymentAsset:     a.PaymentAsset,
		SweptTo:          a.SweptTo,
		CreatedAt:        a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// StatusResponse reports the lifecycle status only.
type StatusResponse struct {
	AccountID string `json:"account_id"`
	Status    string `json:"status"`
}

// ExpiredResponse reports the deterministic expiry check.
type ExpiredResponse struct {
	AccountID string `json:"account_id"`
	Expired   bool   `json:"expired"`
}

// ExpireResponse reports a forced expiry outcome.
type ExpireResponse struct {
	AccountID   string `json:"account_id"`
	Status      string `json:"status"`
	Destination string `json:"destination"`
	Amount      int64  `json:"amount"`
}

// ReserveClaimResponse reports a reserve reclaim outcome.
type ReserveClaimResponse struct {
	AccountID        string `json:"account_id"`
	Destination      string `json:"destination"`
	Amount           int64  `json:"amount"`
	SweepID          int64  `json:"sweep_id"`
	FullyReclaimed   bool   `json:"fully_reclaimed"`
	RemainingReserve int64  `json:"remaining_reserve"`
}

// EventResponse is one audit-trail entry.
type EventResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"created_at"`
}

// NewEventResponses maps domain events to their API projection.
func NewEventResponses(events []domain.AccountEvent) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventResponse{
			ID:        e.ID.String(),
			Type:      string(e.Type),
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
