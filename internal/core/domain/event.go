package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the lifecycle transition an event records.
type EventType string

const (
	EventAccountCreated   EventType = "ACCOUNT_CREATED"
	EventPaymentReceived  EventType = "PAYMENT_RECEIVED"
	EventSweepExecuted    EventType = "SWEEP_EXECUTED"
	EventAccountExpired   EventType = "ACCOUNT_EXPIRED"
	EventReserveReclaimed EventType = "RESERVE_RECLAIMED"
)

// AccountEvent is one immutable audit record. Events are appended in the
// same database transaction as the state mutation they describe, so an
// event exists exactly when its transition committed. The account ID in
// every payload lets an indexer correlate a full lifecycle.
type AccountEvent struct {
	ID        uuid.UUID       `json:"id"`
	AccountID uuid.UUID       `json:"account_id"`
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// AccountCreatedPayload is emitted once per account by initialize.
type AccountCreatedPayload struct {
	AccountID string    `json:"account_id"`
	Creator   string    `json:"creator"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PaymentReceivedPayload is emitted by record_payment.
type PaymentReceivedPayload struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
	Asset     string `json:"asset"`
}

// SweepExecutedPayload is emitted after a sweep commits.
type SweepExecutedPayload struct {
	AccountID   string `json:"account_id"`
	Destination string `json:"destination"`
	Amount      int64  `json:"amount"`
}

// AccountExpiredPayload is emitted after the expiry path commits. Amount is
// 0 when no payment was ever recorded.
type AccountExpiredPayload struct {
	AccountID   string `json:"account_id"`
	Destination string `json:"destination"`
	Amount      int64  `json:"amount"`
}

// ReserveReclaimedPayload is emitted per reserve reclaim step.
type ReserveReclaimedPayload struct {
	AccountID        string `json:"account_id"`
	Destination      string `json:"destination"`
	Amount           int64  `json:"amount"`
	SweepID          int64  `json:"sweep_id"`
	FullyReclaimed   bool   `json:"fully_reclaimed"`
	RemainingReserve int64  `json:"remaining_reserve"`
}

// NewAccountEvent builds an event with a marshaled payload.
func NewAccountEvent(accountID uuid.UUID, typ EventType, payload any, at time.Time) (*AccountEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return &AccountEvent{
		ID:        uuid.New(),
		AccountID: accountID,
		Type:      typ,
		Payload:   raw,
		CreatedAt: at,
	}, nil
}
