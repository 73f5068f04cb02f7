package postgres

import (
	"context"
	"fmt"

	"ephemeral-account-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EventRepo implements ports.EventRepository over the append-only
// account_events table.
type EventRepo struct {
	pool Pool
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(pool Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// Append inserts an event inside tx. Events commit atomically with the
// state transition that produced them.
func (r *EventRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.AccountEvent) error {
	query := `INSERT INTO account_events (id, account_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.Exec(ctx, query, e.ID, e.AccountID, e.Type, e.Payload, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListByAccount returns all events for an account in emission order.
func (r *EventRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.AccountEvent, error) {
	query := `SELECT id, account_id, event_type, payload, created_at
		FROM account_events WHERE account_id = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AccountEvent, error) {
		var e domain.AccountEvent
		err := row.Scan(&e.ID, &e.AccountID, &e.Type, &e.Payload, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return events, nil
}
