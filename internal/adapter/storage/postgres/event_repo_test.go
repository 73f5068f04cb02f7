package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ephemeral-account-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRepo_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)
	e := &domain.AccountEvent{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Type:      domain.EventAccountCreated,
		Payload:   json.RawMessage(`{"account_id":"x"}`),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO account_events").
		WithArgs(e.ID, e.AccountID, e.Type, e.Payload, e.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Append(context.Background(), tx, e)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_ListByAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)
	accountID := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	rows := pgxmock.NewRows([]string{"id", "account_id", "event_type", "payload", "created_at"}).
		AddRow(uuid.New(), accountID, domain.EventAccountCreated, json.RawMessage(`{}`), now).
		AddRow(uuid.New(), accountID, domain.EventPaymentReceived, json.RawMessage(`{}`), now.Add(time.Second))

	mock.ExpectQuery("SELECT .+ FROM account_events WHERE account_id").
		WithArgs(accountID).
		WillReturnRows(rows)

	events, err := repo.ListByAccount(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventAccountCreated, events[0].Type)
	assert.Equal(t, domain.EventPaymentReceived, events[1].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_ListByAccount_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepo(mock)
	accountID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM account_events WHERE account_id").
		WithArgs(accountID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "account_id", "event_type", "payload", "created_at"}))

	events, err := repo.ListByAccount(context.Background(), accountID)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}
