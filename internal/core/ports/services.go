package ports

import (
	"context"
	"time"

	"ephemeral-account-service/internal/core/domain"

	"github.com/google/uuid"
)

// Clock supplies the deterministic time source used by all expiry checks.
// Implementations must be monotonically non-decreasing across reads.
type Clock interface {
	Now() time.Time
}

// Authorizer is the capability gate consulted before the privileged
// transitions (initialize, sweep) take effect. It is an opaque predicate:
// the concrete scheme (HMAC capability MAC, Ed25519 signature) is chosen
// at wiring time. destination is empty for initialize proofs.
type Authorizer interface {
	Verify(accountID uuid.UUID, principal string, destination string, proof string) error
}

// EncryptionService handles AES-256-GCM encryption/decryption of client
// secrets at rest.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 request signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations for the query API.
type TokenService interface {
	Generate(clientID uuid.UUID, accessKey string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	ClientID  uuid.UUID
	AccessKey string
}

// NonceStore manages nonce uniqueness for replay attack prevention.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, clientID string, nonce string, ttl time.Duration) (bool, error)
}

// --- Service Ports (Business Logic) ---

// AccountService is the lifecycle controller plus the read-only query
// interface over ephemeral accounts. Mutators are guarded transitions with
// all-or-nothing commit; queries never write.
type AccountService interface {
	Initialize(ctx context.Context, req InitializeRequest) (*domain.Account, error)
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*domain.Account, error)
	Sweep(ctx context.Context, req SweepRequest) (*domain.Account, error)
	Expire(ctx context.Context, accountID uuid.UUID) (*ExpireResult, error)
	ReclaimReserve(ctx context.Context, accountID uuid.UUID) (*domain.ReserveClaim, error)

	GetStatus(ctx context.Context, accountID uuid.UUID) (domain.AccountStatus, error)
	GetInfo(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	IsExpired(ctx context.Context, accountID uuid.UUID) (bool, error)
	GetReserve(ctx context.Context, accountID uuid.UUID) (*ReserveInfo, error)
	ListEvents(ctx context.Context, accountID uuid.UUID) ([]domain.AccountEvent, error)
}

// InitializeRequest holds validated input for account initialization. The
// account ID is chosen by the orchestrating collaborator so a repeated
// initialize of the same instance can be rejected.
type InitializeRequest struct {
	AccountID        uuid.UUID
	Creator          string
	RecoveryAddress  string
	SweepDestination *string // nil = supplied at sweep time
	ExpiresAt        time.Time
	Proof            string // capability proof for the creator
}

// RecordPaymentRequest holds validated input for payment recording.
type RecordPaymentRequest struct {
	AccountID uuid.UUID
	Amount    int64
	Asset     string
}

// SweepRequest holds validated input for a sweep.
type SweepRequest struct {
	AccountID   uuid.UUID
	Destination string
	Proof       string // capability proof for the declared destination
}

// ExpireResult reports the outcome of the expiry path.
type ExpireResult struct {
	Account     *domain.Account
	Destination string
	Amount      int64 // recorded payment amount, 0 if none
}

// ReserveInfo is the reserve-lifecycle projection of an account.
type ReserveInfo struct {
	Remaining  int64 `json:"remaining"`
	Available  int64 `json:"available"`
	Reclaimed  bool  `json:"reclaimed"`
	ClaimCount int32 `json:"claim_count"`
	LastSweep  int64 `json:"last_sweep_id"`
}

// AuthService defines collaborator client authentication.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// RegisterRequest holds input for client registration.
type RegisterRequest struct {
	Username   string
	Password   string
	ClientName string
}

// RegisterResponse holds the registration result shown once.
type RegisterResponse struct {
	ClientID  uuid.UUID
	AccessKey string
	SecretKey string // Plaintext, shown only at registration
}
