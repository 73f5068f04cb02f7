package service

import (
	"context"
	"fmt"
	"time"

	"ephemeral-account-service/internal/core/domain"
	"ephemeral-account-service/internal/core/ports"
	"ephemeral-account-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// AccountServiceImpl implements ports.AccountService. Every mutator runs as
// one database transaction: guards first, then the state mutation and the
// audit event append, then commit. External notification (structured log)
// happens only after the commit, so a re-entrant call during delivery
// always observes the already-advanced status.
type AccountServiceImpl struct {
	accountRepo ports.AccountRepository
	eventRepo   ports.EventRepository
	authorizer  ports.Authorizer
	transactor  ports.DBTransactor
	clock       ports.Clock
	baseReserve int64
	log         zerolog.Logger
}

// NewAccountService creates a new AccountServiceImpl.
func NewAccountService(
	accountRepo ports.AccountRepository,
	eventRepo ports.EventRepository,
	authorizer ports.Authorizer,
	transactor ports.DBTransactor,
	clock ports.Clock,
	log zerolog.Logger,
) *AccountServiceImpl {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		eventRepo:   eventRepo,
		authorizer:  authorizer,
		transactor:  transactor,
		clock:       clock,
		baseReserve: domain.BaseReserveStroops,
		log:         log,
	}
}

// Initialize creates the account record. Fails with AlreadyInitialized when
// a record for the ID exists — existence takes precedence over the expiry
// and proof guards, so a repeated call always reports the duplicate even
// when its arguments have gone stale — and with InvalidExpiry unless the
// expiry is strictly in the future.
func (s *AccountServiceImpl) Initialize(ctx context.Context, req ports.InitializeRequest) (*domain.Account, error) {
	if !domain.ValidAddress(req.Creator) {
		return nil, apperror.ErrInvalidDestination("malformed creator identity")
	}
	if !domain.ValidAddress(req.RecoveryAddress) {
		return nil, apperror.ErrInvalidDestination("malformed recovery address")
	}
	if req.SweepDestination != nil && !domain.ValidAddress(*req.SweepDestination) {
		return nil, apperror.ErrInvalidDestination("malformed sweep destination")
	}

	existing, err := s.accountRepo.Get(ctx, req.AccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrAlreadyInitialized()
	}

	now := s.clock.Now()
	if !req.ExpiresAt.After(now) {
		return nil, apperror.ErrInvalidExpiry()
	}

	// The creator must prove control over its own identity.
	if err := s.authorizer.Verify(req.AccountID, req.Creator, "", req.Proof); err != nil {
		return nil, apperror.ErrUnauthorized()
	}

	account := &domain.Account{
		ID:               req.AccountID,
		Creator:          req.Creator,
		RecoveryAddress:  req.RecoveryAddress,
		SweepDestination: req.SweepDestination,
		ExpiresAt:        req.ExpiresAt,
		Status:           domain.AccountStatusActive,
		ReserveRemaining: s.baseReserve,
		ReserveAvailable: s.baseReserve,
		ReserveReclaimed: s.baseReserve == 0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Race backstop: two concurrent initializers can both pass the Get
	// above, but only one insert lands.
	created, err := s.accountRepo.Create(ctx, dbTx, account)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create account: %w", err))
	}
	if !created {
		return nil, apperror.ErrAlreadyInitialized()
	}

	if err := s.appendEvent(ctx, dbTx, account.ID, domain.EventAccountCreated, domain.AccountCreatedPayload{
		AccountID: account.ID.String(),
		Creator:   account.Creator,
		ExpiresAt: account.ExpiresAt,
	}, now); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Str("creator", account.Creator).
		Time("expires_at", account.ExpiresAt).
		Msg("account initialized")

	return account, nil
}

// RecordPayment records the single inbound payment. The guard on status is
// the entire single-payment enforcement: the service never inspects an
// underlying balance, so a second externally-arriving payment is invisible
// here and stays attributed to the account (known limitation, by contract
// with the payment-detection collaborator).
func (s *AccountServiceImpl) RecordPayment(ctx context.Context, req ports.RecordPaymentRequest) (*domain.Account, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if !domain.ValidAddress(req.Asset) {
		return nil, apperror.ErrInvalidDestination("malformed asset identity")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.lockAccount(ctx, dbTx, req.AccountID)
	if err != nil {
		return nil, err
	}

	if account.Status != domain.AccountStatusActive {
		return nil, apperror.ErrPaymentAlreadyReceived()
	}

	now := s.clock.Now()
	if err := transition(account, domain.AccountStatusPaymentReceived); err != nil {
		return nil, err
	}
	amount := req.Amount
	asset := req.Asset
	account.PaymentReceived = true
	account.PaymentAmount = &amount
	account.PaymentAsset = &asset
	account.PaymentAt = &now
	account.UpdatedAt = now

	if err := s.accountRepo.Update(ctx, dbTx, account); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update account: %w", err))
	}

	if err := s.appendEvent(ctx, dbTx, account.ID, domain.EventPaymentReceived, domain.PaymentReceivedPayload{
		AccountID: account.ID.String(),
		Amount:    amount,
		Asset:     asset,
	}, now); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Int64("amount", amount).
		Str("asset", asset).
		Msg("payment recorded")

	return account, nil
}

// Sweep authorizes moving custody to the declared destination. Approval
// only: the transfer-execution collaborator moves the asset after observing
// success. Guard order follows the lifecycle: swept, payment, expiry,
// destination reconciliation, capability proof.
func (s *AccountServiceImpl) Sweep(ctx context.Context, req ports.SweepRequest) (*domain.Account, error) {
	if !domain.ValidAddress(req.Destination) {
		return nil, apperror.ErrInvalidDestination("malformed destination")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.lockAccount(ctx, dbTx, req.AccountID)
	if err != nil {
		return nil, err
	}

	if account.Status == domain.AccountStatusSwept {
		return nil, apperror.ErrAlreadySwept()
	}
	if !account.PaymentReceived {
		return nil, apperror.ErrNoPaymentReceived()
	}
	now := s.clock.Now()
	if account.Status == domain.AccountStatusExpired || account.IsExpiredAt(now) {
		return nil, apperror.ErrAccountExpired()
	}
	if account.SweepDestination != nil && *account.SweepDestination != req.Destination {
		return nil, apperror.ErrInvalidDestination("does not match fixed sweep destination")
	}
	if err := s.authorizer.Verify(account.ID, account.Creator, req.Destination, req.Proof); err != nil {
		return nil, apperror.ErrUnauthorized()
	}

	destination := req.Destination
	sweepID := now.Unix()
	if err := transition(account, domain.AccountStatusSwept); err != nil {
		return nil, err
	}
	account.SweptTo = &destination
	account.LastSweepID = sweepID
	account.UpdatedAt = now
	claim := account.ClaimReserve(destination, sweepID)

	if err := s.accountRepo.Update(ctx, dbTx, account); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update account: %w", err))
	}

	if err := s.appendEvent(ctx, dbTx, account.ID, domain.EventSweepExecuted, domain.SweepExecutedPayload{
		AccountID:   account.ID.String(),
		Destination: destination,
		Amount:      account.ReturnableAmount(),
	}, now); err != nil {
		return nil, err
	}
	if err := s.appendReserveEvent(ctx, dbTx, account.ID, claim, now); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Str("destination", destination).
		Int64("amount", account.ReturnableAmount()).
		Int64("reserve_reclaimed", claim.Amount).
		Msg("sweep executed")

	return account, nil
}

// Expire forces the terminal recovery path once the deadline has passed.
// Deliberately unauthenticated: anyone may call it, and the destination is
// always one of the identities pre-committed at initialization.
func (s *AccountServiceImpl) Expire(ctx context.Context, accountID uuid.UUID) (*ports.ExpireResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.lockAccount(ctx, dbTx, accountID)
	if err != nil {
		return nil, err
	}

	if account.IsTerminal() {
		return nil, apperror.ErrInvalidStatus()
	}
	now := s.clock.Now()
	if !account.IsExpiredAt(now) {
		return nil, apperror.ErrNotExpired()
	}

	destination := account.ExpireDestination()
	amount := account.ReturnableAmount()
	sweepID := now.Unix()
	if err := transition(account, domain.AccountStatusExpired); err != nil {
		return nil, err
	}
	account.SweptTo = &destination
	account.LastSweepID = sweepID
	account.UpdatedAt = now
	claim := account.ClaimReserve(destination, sweepID)

	if err := s.accountRepo.Update(ctx, dbTx, account); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update account: %w", err))
	}

	if err := s.appendEvent(ctx, dbTx, account.ID, domain.EventAccountExpired, domain.AccountExpiredPayload{
		AccountID:   account.ID.String(),
		Destination: destination,
		Amount:      amount,
	}, now); err != nil {
		return nil, err
	}
	if err := s.appendReserveEvent(ctx, dbTx, account.ID, claim, now); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Str("destination", destination).
		Int64("amount", amount).
		Msg("account expired")

	return &ports.ExpireResult{Account: account, Destination: destination, Amount: amount}, nil
}

// ReclaimReserve reclaims any remaining base reserve of a terminal account
// toward its recorded destination. Repeat-safe: once fully reclaimed,
// subsequent calls reclaim 0.
func (s *AccountServiceImpl) ReclaimReserve(ctx context.Context, accountID uuid.UUID) (*domain.ReserveClaim, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.lockAccount(ctx, dbTx, accountID)
	if err != nil {
		return nil, err
	}

	if !account.IsTerminal() || account.SweptTo == nil {
		return nil, apperror.ErrInvalidStatus()
	}

	now := s.clock.Now()
	claim := account.ClaimReserve(*account.SweptTo, account.LastSweepID)
	account.UpdatedAt = now

	if err := s.accountRepo.Update(ctx, dbTx, account); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update account: %w", err))
	}
	if err := s.appendReserveEvent(ctx, dbTx, account.ID, claim, now); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Int64("amount", claim.Amount).
		Bool("fully_reclaimed", claim.FullyReclaimed).
		Msg("reserve reclaimed")

	return &claim, nil
}

// --- Query interface (pure reads, no side effects) ---

// GetStatus returns Active for unknown accounts, else the stored status.
func (s *AccountServiceImpl) GetStatus(ctx context.Context, accountID uuid.UUID) (domain.AccountStatus, error) {
	account, err := s.accountRepo.Get(ctx, accountID)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return domain.AccountStatusActive, nil
	}
	return account.Status, nil
}

// GetInfo returns the full record, or NotInitialized.
func (s *AccountServiceImpl) GetInfo(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.Get(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotInitialized()
	}
	return account, nil
}

// IsExpired returns false for unknown accounts, else whether the deadline
// has passed on the deterministic clock.
func (s *AccountServiceImpl) IsExpired(ctx context.Context, accountID uuid.UUID) (bool, error) {
	account, err := s.accountRepo.Get(ctx, accountID)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return false, nil
	}
	return account.IsExpiredAt(s.clock.Now()), nil
}

// GetReserve returns the reserve-lifecycle projection.
func (s *AccountServiceImpl) GetReserve(ctx context.Context, accountID uuid.UUID) (*ports.ReserveInfo, error) {
	account, err := s.accountRepo.Get(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotInitialized()
	}
	return &ports.ReserveInfo{
		Remaining:  account.ReserveRemaining,
		Available:  account.ReserveAvailable,
		Reclaimed:  account.ReserveReclaimed,
		ClaimCount: account.ReserveClaimCount,
		LastSweep:  account.LastSweepID,
	}, nil
}

// ListEvents returns the append-only audit trail for one account.
func (s *AccountServiceImpl) ListEvents(ctx context.Context, accountID uuid.UUID) ([]domain.AccountEvent, error) {
	events, err := s.eventRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list events: %w", err))
	}
	return events, nil
}

// --- helpers ---

// transition advances the status after re-checking lifecycle monotonicity.
// The per-operation guards make a violation unreachable on well-formed
// records; this refuses to overwrite a corrupted stored status.
func transition(account *domain.Account, next domain.AccountStatus) error {
	if !account.Status.CanTransitionTo(next) {
		return apperror.InternalError(fmt.Errorf("illegal status transition %s -> %s", account.Status, next))
	}
	account.Status = next
	return nil
}

func (s *AccountServiceImpl) lockAccount(ctx context.Context, dbTx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.GetForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotInitialized()
	}
	return account, nil
}

func (s *AccountServiceImpl) appendEvent(ctx context.Context, dbTx pgx.Tx, accountID uuid.UUID, typ domain.EventType, payload any, at time.Time) error {
	event, err := domain.NewAccountEvent(accountID, typ, payload, at)
	if err != nil {
		return apperror.InternalError(err)
	}
	if err := s.eventRepo.Append(ctx, dbTx, event); err != nil {
		return apperror.InternalError(fmt.Errorf("append %s event: %w", typ, err))
	}
	return nil
}

func (s *AccountServiceImpl) appendReserveEvent(ctx context.Context, dbTx pgx.Tx, accountID uuid.UUID, claim domain.ReserveClaim, at time.Time) error {
	return s.appendEvent(ctx, dbTx, accountID, domain.EventReserveReclaimed, domain.ReserveReclaimedPayload{
		AccountID:        accountID.String(),
		Destination:      claim.Destination,
		Amount:           claim.Amount,
		SweepID:          claim.SweepID,
		FullyReclaimed:   claim.FullyReclaimed,
		RemainingReserve: claim.RemainingReserve,
	}, at)
}
