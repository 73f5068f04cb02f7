package ports

import (
	"context"

	"ephemeral-account-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository defines persistence for ephemeral account records.
// Methods accepting pgx.Tx run inside lifecycle transactions; GetForUpdate
// takes a row lock so guard-then-mutate sequences are atomic with respect
// to concurrent operations on the same account.
type AccountRepository interface {
	// Create inserts the record for a new account. created is false when a
	// record with the same ID already exists (the insert is a no-op then).
	Create(ctx context.Context, tx pgx.Tx, account *domain.Account) (created bool, err error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error)
	Update(ctx context.Context, tx pgx.Tx, account *domain.Account) error
}

// EventRepository defines append-only persistence for audit events.
type EventRepository interface {
	Append(ctx context.Context, tx pgx.Tx, event *domain.AccountEvent) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.AccountEvent, error)
}

// ClientRepository defines persistence for collaborator API clients.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.APIClient) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.APIClient, error)
	GetByAccessKey(ctx context.Context, accessKey string) (*domain.APIClient, error)
	GetByUsername(ctx context.Context, username string) (*domain.APIClient, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
