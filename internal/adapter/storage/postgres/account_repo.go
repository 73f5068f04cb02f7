package postgres

import (
	"context"
	"errors"
	"fmt"

	"ephemeral-account-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const accountColumns = `id, creator, recovery_address, sweep_destination, expires_at, status,
	payment_received, payment_amount, payment_asset, payment_at, swept_to,
	reserve_remaining, reserve_available, reserve_reclaimed, last_sweep_id, reserve_claim_count,
	created_at, updated_at`

// Create inserts the account. ON CONFLICT DO NOTHING makes re-initialization
// a visible no-op: created is false when the ID already exists.
func (r *AccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) (bool, error) {
	query := `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO NOTHING`

	tag, err := tx.Exec(ctx, query,
		a.ID, a.Creator, a.RecoveryAddress, a.SweepDestination, a.ExpiresAt, a.Status,
		a.PaymentReceived, a.PaymentAmount, a.PaymentAsset, a.PaymentAt, a.SweptTo,
		a.ReserveRemaining, a.ReserveAvailable, a.ReserveReclaimed, a.LastSweepID, a.ReserveClaimCount,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert account: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get fetches an account without locking. Returns nil, nil when absent.
func (r *AccountRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

// GetForUpdate fetches an account inside tx with a row lock, serializing
// concurrent transitions on the same account.
func (r *AccountRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return scanAccount(tx.QueryRow(ctx, query, id))
}

// Update persists the mutable lifecycle fields inside tx.
func (r *AccountRepo) Update(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	query := `UPDATE accounts SET
		status=$1, payment_received=$2, payment_amount=$3, payment_asset=$4, payment_at=$5,
		swept_to=$6, reserve_remaining=$7, reserve_available=$8, reserve_reclaimed=$9,
		last_sweep_id=$10, reserve_claim_count=$11, updated_at=$12
		WHERE id=$13`

	tag, err := tx.Exec(ctx, query,
		a.Status, a.PaymentReceived, a.PaymentAmount, a.PaymentAsset, a.PaymentAt,
		a.SweptTo, a.ReserveRemaining, a.ReserveAvailable, a.ReserveReclaimed,
		a.LastSweepID, a.ReserveClaimCount, a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update account: no row for id %s", a.ID)
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(
		&a.ID, &a.Creator, &a.RecoveryAddress, &a.SweepDestination, &a.ExpiresAt, &a.Status,
		&a.PaymentReceived, &a.PaymentAmount, &a.PaymentAsset, &a.PaymentAt, &a.SweptTo,
		&a.ReserveRemaining, &a.ReserveAvailable, &a.ReserveReclaimed, &a.LastSweepID, &a.ReserveClaimCount,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}
