package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// BaseReserveStroops is the reserve locked when an account is created and
// reclaimed once it reaches a terminal state.
const BaseReserveStroops int64 = 1_000_000_000

// AccountStatus represents the lifecycle state of an ephemeral account.
type AccountStatus string

const (
	AccountStatusActive          AccountStatus = "ACTIVE"
	AccountStatusPaymentReceived AccountStatus = "PAYMENT_RECEIVED"
	AccountStatusSwept           AccountStatus = "SWEPT"
	AccountStatusExpired         AccountStatus = "EXPIRED"
)

// statusRank orders statuses along the lifecycle. Swept and Expired share a
// rank: both are terminal and neither follows the other.
var statusRank = map[AccountStatus]int{
	AccountStatusActive:          0,
	AccountStatusPaymentReceived: 1,
	AccountStatusSwept:           2,
	AccountStatusExpired:         2,
}

// CanTransitionTo reports whether moving from s to next keeps the status
// monotonic. A status never returns to a prior state.
func (s AccountStatus) CanTransitionTo(next AccountStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// IsTerminal returns true for Swept and Expired.
func (s AccountStatus) IsTerminal() bool {
	return s == AccountStatusSwept || s == AccountStatusExpired
}

var addressRe = regexp.MustCompile(`^[A-Za-z0-9]{1,64}$`)

// ValidAddress reports whether s is a well-formed account/asset identity.
func ValidAddress(s string) bool {
	return addressRe.MatchString(s)
}

// Account is the durable record of one ephemeral escrow account. It is
// created once by initialize and mutated in place until it reaches a
// terminal state; terminal records are kept indefinitely.
type Account struct {
	ID               uuid.UUID     `json:"id"`
	Creator          string        `json:"creator"`
	RecoveryAddress  string        `json:"recovery_address"`
	SweepDestination *string       `json:"sweep_destination,omitempty"` // fixed at init, optional
	ExpiresAt        time.Time     `json:"expires_at"`
	Status           AccountStatus `json:"status"`
	PaymentReceived  bool          `json:"payment_received"`
	PaymentAmount    *int64        `json:"payment_amount,omitempty"` // present iff PaymentReceived
	PaymentAsset     *string       `json:"payment_asset,omitempty"`  // present iff PaymentReceived
	PaymentAt        *time.Time    `json:"payment_at,omitempty"`
	SweptTo          *string       `json:"swept_to,omitempty"` // present iff terminal

	// Base reserve lifecycle. The reserve is accounting only; the service
	// never moves the underlying asset.
	ReserveRemaining  int64 `json:"reserve_remaining"`
	ReserveAvailable  int64 `json:"reserve_available"`
	ReserveReclaimed  bool  `json:"reserve_reclaimed"`
	LastSweepID       int64 `json:"last_sweep_id"`
	ReserveClaimCount int32 `json:"reserve_claim_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal returns true once the account is Swept or Expired.
func (a *Account) IsTerminal() bool {
	return a.Status.IsTerminal()
}

// IsExpiredAt reports whether the account deadline has passed at t.
func (a *Account) IsExpiredAt(t time.Time) bool {
	return !t.Before(a.ExpiresAt)
}

// ExpireDestination is where custody goes on the expiry path: the sweep
// destination fixed at initialization when present, otherwise the recovery
// address.
func (a *Account) ExpireDestination() string {
	if a.SweepDestination != nil {
		return *a.SweepDestination
	}
	return a.RecoveryAddress
}

// ReturnableAmount is the amount attributed to the destination on expiry:
// the recorded payment amount, or 0 when no payment ever arrived.
func (a *Account) ReturnableAmount() int64 {
	if a.PaymentReceived && a.PaymentAmount != nil {
		return *a.PaymentAmount
	}
	return 0
}

// ReserveClaim describes one reserve reclaim step.
type ReserveClaim struct {
	Destination      string `json:"destination"`
	Amount           int64  `json:"amount"`
	SweepID          int64  `json:"sweep_id"`
	FullyReclaimed   bool   `json:"fully_reclaimed"`
	RemainingReserve int64  `json:"remaining_reserve"`
}

// ClaimReserve reclaims as much of the base reserve as is currently
// available, mutating the account's reserve tracking fields. Safe to call
// repeatedly: once the reserve is exhausted, subsequent claims are zero.
func (a *Account) ClaimReserve(destination string, sweepID int64) ReserveClaim {
	amount := a.ReserveRemaining
	if a.ReserveAvailable < amount {
		amount = a.ReserveAvailable
	}
	if amount < 0 {
		amount = 0
	}

	a.ReserveAvailable -= amount
	a.ReserveRemaining -= amount
	a.ReserveReclaimed = a.ReserveRemaining == 0
	a.ReserveClaimCount++

	return ReserveClaim{
		Destination:      destination,
		Amount:           amount,
		SweepID:          sweepID,
		FullyReclaimed:   a.ReserveReclaimed,
		RemainingReserve: a.ReserveRemaining,
	}
}
