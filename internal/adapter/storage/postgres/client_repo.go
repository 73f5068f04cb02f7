package postgres

import (
	"context"
	"errors"
	"fmt"

	"ephemeral-account-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ClientRepo implements ports.ClientRepository.
type ClientRepo struct {
	pool Pool
}

// NewClientRepo creates a new ClientRepo.
func NewClientRepo(pool Pool) *ClientRepo {
	return &ClientRepo{pool: pool}
}

const clientColumns = `id, username, password_hash, client_name, access_key, secret_key_enc, status, created_at, updated_at`

// Create inserts a new API client into the database.
func (r *ClientRepo) Create(ctx context.Context, c *domain.APIClient) error {
	query := `INSERT INTO api_clients (` + clientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Username, c.PasswordHash, c.ClientName,
		c.AccessKey, c.SecretKeyEnc, c.Status,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// GetByID fetches a client by its UUID.
func (r *ClientRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.APIClient, error) {
	query := `SELECT ` + clientColumns + ` FROM api_clients WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id), "id")
}

// GetByAccessKey fetches a client by its public access key.
func (r *ClientRepo) GetByAccessKey(ctx context.Context, accessKey string) (*domain.APIClient, error) {
	query := `SELECT ` + clientColumns + ` FROM api_clients WHERE access_key = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, accessKey), "access_key")
}

// GetByUsername fetches a client by username.
func (r *ClientRepo) GetByUsername(ctx context.Context, username string) (*domain.APIClient, error) {
	query := `SELECT ` + clientColumns + ` FROM api_clients WHERE username = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, username), "username")
}

func (r *ClientRepo) scanOne(row pgx.Row, by string) (*domain.APIClient, error) {
	c := &domain.APIClient{}
	err := row.Scan(
		&c.ID, &c.Username, &c.PasswordHash, &c.ClientName,
		&c.AccessKey, &c.SecretKeyEnc, &c.Status,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client by %s: %w", by, err)
	}
	return c, nil
}
